package podcast

import "podcaster/internal/generation"

var premiseExamples = []generation.Example{
	{"Animal Planet", "The world is an amazing place. We'll tell you its stories every day."},
	{"Banking News", "All the updates you need to track the banking world."},
	{"Hollywood Gab", "The latest stories from inside Hollywood."},
	{"The MIT Tech Review", "The latest in science and technology, explained."},
	{"Politico", "Hear the opinions and analysis that shapes capitol hill."},
	{"Car Talk", "Call-in show with automotive mysteries, fix-it help, and laughter."},
}

var episodeExamples = []generation.Example{
	{"Animal Planet", "The world is an amazing place. We'll tell you its stories every day.",
		"Wolverines", "What Wolverines eat in the wild."},
	{"Banking News", "All the updates you need to track the banking world.",
		"Today's Banking News", "All the updates you need to track the banking world."},
	{"Hollywood Gab", "The latest stories from inside Hollywood.",
		"Guest: Tommy Lee Jones", "What does a retired actor do when he's not in an action movie?"},
	{"The MIT Tech Review", "The latest in science and technology, explained.",
		"Sound Lasers", "Soon, we may be directing sound from afar, straight into your head."},
	{"Politico", "Hear the opinions and analysis that shapes capitol hill.",
		"What Biden Needs", "Polls got you down? We've got the answer. Everything Biden needs to win the public."},
	{"Car Talk", "Call-in show with automotive mysteries, fix-it help, and laughter.",
		"A Man. A Sedan. A Mystery.", "A caller from Boston has a car that turns off when he makes a left-hand turn."},
}

var scriptExamples = []generation.Example{
	{"Animal Planet", "The world is an amazing place. We'll tell you its stories every day.",
		"Wolverines", "What Wolverines eat in the wild.",
		"Welcome back to Animal Planet. Today we follow the wolverine, a ferocious forager of the far north. " +
			"It eats almost anything: carrion in winter, berries and eggs in summer, and the occasional reindeer. " +
			"Its jaws can crack frozen bone, and it caches food in snow to eat weeks later. " +
			"Next time you hear about a scavenger, remember the wolverine. THE END."},
	{"Car Talk", "Call-in show with automotive mysteries, fix-it help, and laughter.",
		"A Man. A Sedan. A Mystery.", "A caller from Boston has a car that turns off when he makes a left-hand turn.",
		"Our first caller is Dave from Boston. Dave, what's going on? Every left turn, the engine just quits. " +
			"Only left turns? Only left turns. Well Dave, we think your fuel pickup is starving when the tank sloshes. " +
			"Keep that tank above a quarter and call us back. Thanks for listening. THE END."},
}
