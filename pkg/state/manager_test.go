package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSessionRoundTrip(t *testing.T) {
	Convey("Given a state manager", t, func() {
		stateDir := t.TempDir()
		manager, err := NewManager(stateDir)
		So(err, ShouldBeNil)

		Convey("When saving a session record", func() {
			record := SessionRecord{
				SessionID:        "abc",
				Project:          "recall",
				WorkingDirectory: "/home/dev/recall",
				StartedAt:        time.Now().UTC(),
				MessageCount:     3,
			}
			So(manager.SaveSession(record), ShouldBeNil)

			Convey("It can be loaded by ID", func() {
				loaded, ok := manager.LoadSession("abc")
				So(ok, ShouldBeTrue)
				So(loaded.Project, ShouldEqual, "recall")
				So(loaded.MessageCount, ShouldEqual, 3)
			})

			Convey("It becomes the latest session", func() {
				latest, ok := manager.LatestSession()
				So(ok, ShouldBeTrue)
				So(latest.SessionID, ShouldEqual, "abc")
			})
		})

		Convey("When loading a missing session", func() {
			_, ok := manager.LoadSession("nope")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestSessionThreading(t *testing.T) {
	Convey("Given two consecutive sessions", t, func() {
		manager, err := NewManager(t.TempDir())
		So(err, ShouldBeNil)

		So(manager.SaveSession(SessionRecord{SessionID: "first"}), ShouldBeNil)

		previous, ok := manager.LatestSession()
		So(ok, ShouldBeTrue)

		second := SessionRecord{
			SessionID:         "second",
			PreviousSessionID: previous.SessionID,
		}
		So(manager.SaveSession(second), ShouldBeNil)

		Convey("The second record threads back to the first", func() {
			latest, ok := manager.LatestSession()
			So(ok, ShouldBeTrue)
			So(latest.PreviousSessionID, ShouldEqual, "first")
		})
	})
}

func TestContextLogAppends(t *testing.T) {
	Convey("Given a state manager", t, func() {
		stateDir := t.TempDir()
		manager, err := NewManager(stateDir)
		So(err, ShouldBeNil)

		Convey("When appending entries", func() {
			manager.AppendContextLog(ContextEntry{SessionID: "abc", Event: "session-start", Injected: 4})
			manager.AppendContextLog(ContextEntry{SessionID: "abc", Event: "user-message", Injected: 2})

			Convey("The log holds one JSON line per entry", func() {
				data, err := os.ReadFile(filepath.Join(stateDir, "context.log.jsonl"))
				So(err, ShouldBeNil)

				lines := 0
				for _, b := range data {
					if b == '\n' {
						lines++
					}
				}
				So(lines, ShouldEqual, 2)
			})
		})
	})
}

func TestStatusLineCache(t *testing.T) {
	Convey("Given a state manager", t, func() {
		manager, err := NewManager(t.TempDir())
		So(err, ShouldBeNil)

		Convey("When no status was written", func() {
			_, ok := manager.ReadStatusLine()
			So(ok, ShouldBeFalse)
		})

		Convey("When a status is written", func() {
			manager.WriteStatusLine(StatusLine{Profile: "balanced", Transport: "http", MemoryCount: 5})

			status, ok := manager.ReadStatusLine()
			So(ok, ShouldBeTrue)
			So(status.Profile, ShouldEqual, "balanced")
			So(status.UpdatedAt.IsZero(), ShouldBeFalse)
		})
	})
}

func TestCleanupRemovesOldSessions(t *testing.T) {
	Convey("Given old and new session files", t, func() {
		stateDir := t.TempDir()
		manager, err := NewManager(stateDir)
		So(err, ShouldBeNil)

		So(manager.SaveSession(SessionRecord{SessionID: "old"}), ShouldBeNil)
		So(manager.SaveSession(SessionRecord{SessionID: "new"}), ShouldBeNil)

		oldPath := filepath.Join(stateDir, "sessions", "old.json")
		stale := time.Now().Add(-48 * time.Hour)
		So(os.Chtimes(oldPath, stale, stale), ShouldBeNil)

		Convey("Cleanup removes only the stale record", func() {
			So(manager.Cleanup(24*time.Hour), ShouldBeNil)

			_, ok := manager.LoadSession("old")
			So(ok, ShouldBeFalse)

			_, ok = manager.LoadSession("new")
			So(ok, ShouldBeTrue)

			_, ok = manager.LatestSession()
			So(ok, ShouldBeTrue)
		})
	})
}
