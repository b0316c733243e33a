package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gerickson-labs/hlxgo/statechange"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "stream state-change notifications until interrupted",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := runMonitor(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(monitorCmd)
}

// runMonitor subscribes to a session's Controller.Notifier and prints
// every notification it receives until the process is interrupted,
// mirroring runRefresh's dial-then-drive shape.
func runMonitor() error {
	sess, err := dial()
	if err != nil {
		return err
	}
	defer sess.Close()

	bold := color.New(color.Bold)
	sess.Controller.Notifier.Subscribe(statechange.ObserverFunc(func(n statechange.Notification) {
		printNotification(bold, n)
	}))

	fmt.Printf("monitoring %s, press ctrl-c to stop\n", rootServerFlag)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

// printNotification renders one notification's populated fields, since
// Notification is a tagged union and only the fields relevant to Kind
// carry a meaningful value.
func printNotification(kind *color.Color, n statechange.Notification) {
	kind.Printf("%s", n.Kind)
	if n.ID != 0 {
		fmt.Printf(" id=%d", n.ID)
	}
	switch {
	case n.Str != "":
		fmt.Printf(" %q", n.Str)
	case len(n.Ids) > 0:
		fmt.Printf(" ids=%v", n.Ids)
	case n.Kind == statechange.KindZonesEqualizerBand:
		fmt.Printf(" band=%d level=%d", n.Index, n.Int)
	case n.Kind == statechange.KindZonesSoundMode:
		fmt.Printf(" mode=%v", n.Mode)
	default:
		if n.Int != 0 {
			fmt.Printf(" %d", n.Int)
		} else {
			fmt.Printf(" %v", n.Bool)
		}
	}
	fmt.Println()
}
