package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gerickson-labs/hlxgo/topctrl"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var refreshTableFlag bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "query every per-family property to rebuild a local mirror of peer state",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := runRefresh(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshTableFlag, "table", false, "render a per-family table of query counts instead of the refresh percentage")
	RootCmd.AddCommand(refreshCmd)
}

// runRefresh drives the client-role refresh lifecycle on a session and
// prints its progress, optionally as a per-family table (--table) built
// from each object controller's ExpectedQueryCount, since the refresh
// itself only reports one aggregate percentage.
func runRefresh() error {
	sess, err := dial()
	if err != nil {
		return err
	}
	defer sess.Close()

	done := make(chan struct{})
	var refreshErr error
	sess.Controller.SetDelegate(topctrl.Delegate{
		IsRefreshing: func(percent int) {
			if !refreshTableFlag {
				fmt.Printf("\rrefreshing... %d%%", percent)
			}
		},
		DidRefresh: func() {
			if !refreshTableFlag {
				fmt.Println()
			}
			close(done)
		},
		ControllerError: func(err error) {
			refreshErr = err
			close(done)
		},
	})

	sess.Controller.Refresh(sess.Manager, sess.Conn, rootTimeoutFlag)
	<-done
	if refreshErr != nil {
		return refreshErr
	}

	if refreshTableFlag {
		printRefreshTable(sess.Controller)
	}
	fmt.Println("refresh complete")
	return nil
}

func printRefreshTable(ctrl *topctrl.Controller) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Family", "Queries Issued")
	for _, row := range []struct {
		name  string
		count int
	}{
		{"zones", ctrl.Zones.ExpectedQueryCount()},
		{"groups", ctrl.Groups.ExpectedQueryCount()},
		{"sources", ctrl.Sources.ExpectedQueryCount()},
		{"favorites", ctrl.Favorites.ExpectedQueryCount()},
		{"equalizer presets", ctrl.EqualizerPresets.ExpectedQueryCount()},
		{"front panel", ctrl.FrontPanel.ExpectedQueryCount()},
		{"network", ctrl.Network.ExpectedQueryCount()},
		{"infrared", ctrl.Infrared.ExpectedQueryCount()},
		{"configuration", ctrl.Configuration.ExpectedQueryCount()},
	} {
		_ = table.Append(row.name, strconv.Itoa(row.count))
	}
	_ = table.Render()
}
