package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/devpulse/pkg/logger"
	"github.com/okian/devpulse/pkg/retry"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestPolicy_Do(t *testing.T) {
	Convey("Given a policy of three attempts with no delay", t, func() {
		attempts := 0
		policy := retry.New(3, 0, retry.WithAttemptHook(func(int) { attempts++ }))
		ctx := context.Background()

		Convey("When the operation succeeds on the second attempt", func() {
			calls := 0
			err := policy.Do(ctx, "post", func(context.Context) error {
				calls++
				if calls < 2 {
					return errors.New("webhook 502")
				}
				return nil
			})

			Convey("Then it returns nil after two attempts", func() {
				So(err, ShouldBeNil)
				So(calls, ShouldEqual, 2)
				So(attempts, ShouldEqual, 2)
			})
		})

		Convey("When the operation always fails", func() {
			boom := errors.New("webhook 500")
			calls := 0
			err := policy.Do(ctx, "post", func(context.Context) error {
				calls++
				return boom
			})

			Convey("Then the last error surfaces after exactly three attempts", func() {
				So(calls, ShouldEqual, 3)
				So(errors.Is(err, boom), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "post failed after 3 attempt(s)")
			})
		})

		Convey("When the operation returns a permanent error", func() {
			missing := errors.New("no webhook configured")
			calls := 0
			err := policy.Do(ctx, "post", func(context.Context) error {
				calls++
				return retry.Permanent(missing)
			})

			Convey("Then it stops immediately", func() {
				So(calls, ShouldEqual, 1)
				So(errors.Is(err, missing), ShouldBeTrue)
			})
		})
	})

	Convey("Given a policy with a long delay", t, func() {
		policy := retry.New(5, time.Hour)

		Convey("When the context is canceled between attempts", func() {
			ctx, cancel := context.WithCancel(context.Background())
			calls := 0
			done := make(chan error, 1)
			go func() {
				done <- policy.Do(ctx, "post", func(context.Context) error {
					calls++
					return errors.New("down")
				})
			}()
			time.Sleep(20 * time.Millisecond)
			cancel()

			Convey("Then Do returns without waiting for the delay", func() {
				select {
				case err := <-done:
					So(err, ShouldNotBeNil)
					So(calls, ShouldEqual, 1)
				case <-time.After(2 * time.Second):
					So("Do did not return after cancel", ShouldBeEmpty)
				}
			})
		})
	})

	Convey("Given non-positive settings", t, func() {
		policy := retry.New(0, -1)

		Convey("Then the defaults apply", func() {
			So(policy.MaxAttempts, ShouldEqual, retry.DefaultMaxAttempts)
			So(policy.Delay, ShouldEqual, retry.DefaultDelay)
		})
	})
}
