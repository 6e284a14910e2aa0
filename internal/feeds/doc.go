// Package feeds persists the podcast feed and its episodes as tagged
// documents in a docstore workspace.
//
// A workspace holds at most one un-keyed feed. Feeds with a GUID are not
// checked for duplicates on Create; route through GetOrCreate instead.
// Episodes are found by tag query in the same workspace, not by reference
// to a feed.
package feeds
