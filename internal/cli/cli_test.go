package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/devpulse/internal/domain/model"
	"github.com/okian/devpulse/internal/notify"
	"github.com/okian/devpulse/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const directoryYAML = `
people:
  ana:
    name: Ana Lima
    tracker_username: ana.lima
    source_login: analima
    chat_id: U1
    support: true
  bo:
    tracker_username: bo.chen
    source_login: bochen
`

// writeFixtures lays out a config, directory and snapshot in a temp dir and
// returns the config path. Completed work is dated yesterday so it falls
// inside any window.
func writeFixtures(t *testing.T, webhook string) string {
	t.Helper()
	dir := t.TempDir()
	yesterday := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)

	snapshot := fmt.Sprintf(`
work_items:
  - id: "1"
    title: Crash on launch
    priority: 1
    assignee: ana.lima
    completed_at: %q
    labels: [Bug]
  - id: "2"
    title: Dark mode
    priority: 4
    assignee: bo.chen
    completed_at: %q
    labels: [New Feature]
`, yesterday, yesterday)

	config := fmt.Sprintf(`
directory_path: %s
snapshot_path: %s
slack_webhook_url: %q
notify_retry_delay_ms: 0
notify_max_attempts: 2
`, filepath.Join(dir, "directory.yaml"), filepath.Join(dir, "snapshot.yaml"), webhook)

	files := map[string]string{
		"directory.yaml": directoryYAML,
		"snapshot.yaml":  snapshot,
		"config.yaml":    config,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "config.yaml")
}

func run(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCommand(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

type webhookRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (r *webhookRecorder) handler(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	body, _ := io.ReadAll(req.Body)
	_ = json.Unmarshal(body, &payload)
	r.mu.Lock()
	r.bodies = append(r.bodies, payload.Text)
	r.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (r *webhookRecorder) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.bodies...)
}

func TestLeaderboardCommand(t *testing.T) {
	Convey("Given a config with two contributors", t, func() {
		cfgPath := writeFixtures(t, "")

		Convey("When printing the leaderboard as a table", func() {
			out, err := run("leaderboard", "--config", cfgPath, "--no-color", "--days", "7")

			Convey("Then both people are listed with the leader first", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Ana Lima")
				So(out, ShouldContainSubstring, "Bo Chen")
				So(out, ShouldContainSubstring, notify.Medals[0])
				So(bytes.Index([]byte(out), []byte("Ana Lima")), ShouldBeLessThan, bytes.Index([]byte(out), []byte("Bo Chen")))
			})
		})

		Convey("When printing the leaderboard as JSON with a limit", func() {
			out, err := run("leaderboard", "--config", cfgPath, "-o", "json", "--limit", "1", "--fresh")

			Convey("Then only the top entry is returned", func() {
				So(err, ShouldBeNil)
				var entries []model.ScoreEntry
				So(json.Unmarshal([]byte(out), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Slug, ShouldEqual, "ana")
				So(entries[0].Score, ShouldEqual, 20)
				So(entries[0].Breakdown[model.CategoryUrgent], ShouldEqual, 20)
			})
		})

		Convey("When the window exceeds the maximum", func() {
			_, err := run("leaderboard", "--config", cfgPath, "--days", "9999")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When an unknown output format is requested", func() {
			_, err := run("leaderboard", "--config", cfgPath, "-o", "xml")

			Convey("Then the command fails before starting the service", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown output")
			})
		})
	})

	Convey("Given a config file that does not exist", t, func() {
		_, err := run("leaderboard", "--config", filepath.Join(t.TempDir(), "missing.yaml"))

		Convey("Then loading fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSupportCommand(t *testing.T) {
	Convey("Given one support-eligible person with no project", t, func() {
		cfgPath := writeFixtures(t, "")

		Convey("When printing the roster for a date", func() {
			out, err := run("support", "--config", cfgPath, "--no-color", "--date", "2024-07-01")

			Convey("Then that person is available", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Support for 2024-07-01")
				So(out, ShouldContainSubstring, "Ana Lima")
				So(out, ShouldContainSubstring, "<@U1>")
				So(out, ShouldNotContainSubstring, "Bo Chen")
			})
		})

		Convey("When printing the roster as JSON", func() {
			out, err := run("support", "--config", cfgPath, "-o", "json")

			Convey("Then the slugs are listed", func() {
				So(err, ShouldBeNil)
				var roster struct {
					People []struct {
						Slug string `json:"slug"`
					} `json:"people"`
				}
				So(json.Unmarshal([]byte(out), &roster), ShouldBeNil)
				So(len(roster.People), ShouldEqual, 1)
				So(roster.People[0].Slug, ShouldEqual, "ana")
			})
		})

		Convey("When the date is malformed", func() {
			_, err := run("support", "--config", cfgPath, "--date", "07/01/2024")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "invalid --date")
			})
		})
	})
}

func TestNotifyCommand(t *testing.T) {
	Convey("Given a reachable webhook", t, func() {
		rec := &webhookRecorder{}
		server := httptest.NewServer(http.HandlerFunc(rec.handler))
		defer server.Close()
		cfgPath := writeFixtures(t, server.URL)

		Convey("When posting the support roster", func() {
			out, err := run("notify", "support", "--config", cfgPath)

			Convey("Then the message reaches the webhook once", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "support: "+notify.StatusSent)
				bodies := rec.received()
				So(len(bodies), ShouldEqual, 1)
				So(bodies[0], ShouldContainSubstring, "<@U1>")
			})
		})

		Convey("When rendering the leaderboard as a dry run", func() {
			out, err := run("notify", "leaderboard", "--config", cfgPath, "--dry-run")

			Convey("Then the text is printed and nothing is posted", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "*Weekly Leaderboard*")
				So(out, ShouldContainSubstring, "<@U1>: 20")
				So(len(rec.received()), ShouldEqual, 0)
			})
		})

		Convey("When the job is unknown", func() {
			_, err := run("notify", "digest", "--config", cfgPath)

			Convey("Then argument validation rejects it", func() {
				So(err, ShouldNotBeNil)
				So(len(rec.received()), ShouldEqual, 0)
			})
		})
	})

	Convey("Given no webhook", t, func() {
		cfgPath := writeFixtures(t, "")

		Convey("When posting", func() {
			_, err := run("notify", "support", "--config", cfgPath)

			Convey("Then delivery fails", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, notify.ErrMissingWebhook), ShouldBeTrue)
			})
		})
	})
}
