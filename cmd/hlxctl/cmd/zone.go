package cmd

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/gerickson-labs/hlxgo/model"
	"github.com/gerickson-labs/hlxgo/rxmatch"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "inspect and control zones",
}

var zoneGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "query and print a zone's current state",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		id, err := parseIdentifier(args[0])
		if err != nil {
			log.Fatal(err)
		}
		if err := zoneGet(id); err != nil {
			log.Fatal(err)
		}
	},
}

var zoneVolumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "get or set a zone's volume",
}

var zoneVolumeSetCmd = &cobra.Command{
	Use:   "set <id> <level>",
	Short: "set a zone's volume level",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		id, err := parseIdentifier(args[0])
		if err != nil {
			log.Fatal(err)
		}
		level, err := strconv.ParseInt(args[1], 10, 8)
		if err != nil {
			log.Fatalf("invalid volume level %q: %v", args[1], err)
		}
		if err := zoneVolumeSet(id, int8(level)); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(zoneCmd)
	zoneCmd.AddCommand(zoneGetCmd)
	zoneCmd.AddCommand(zoneVolumeCmd)
	zoneVolumeCmd.AddCommand(zoneVolumeSetCmd)
}

func parseIdentifier(s string) (model.Identifier, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid zone identifier %q: %w", s, err)
	}
	return model.Identifier(n), nil
}

func zoneGet(id model.Identifier) error {
	sess, err := dial()
	if err != nil {
		return err
	}
	defer sess.Close()

	done := make(chan error, 1)
	if err := sess.Controller.Zones.QueryOne(sess.Manager, sess.Conn, id, rootTimeoutFlag, func(_ []rxmatch.Match, err error) {
		done <- err
	}); err != nil {
		return err
	}
	if err := <-done; err != nil {
		return fmt.Errorf("querying zone %d: %w", id, err)
	}

	z, err := sess.Controller.Zones.Zone(id)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Printf("zone %d: %s\n", id, z.Name())
	fmt.Printf("  volume:  %d%s\n", z.Volume().Level(), mutedSuffix(z.Volume().IsMuted()))
	fmt.Printf("  source:  %d\n", z.SourceIdentifier())
	fmt.Printf("  tone:    bass %d, treble %d\n", z.Tone().Bass(), z.Tone().Treble())
	fmt.Printf("  balance: %d\n", z.Balance().Offset())
	return nil
}

func mutedSuffix(muted bool) string {
	if muted {
		return " (muted)"
	}
	return ""
}

func zoneVolumeSet(id model.Identifier, level int8) error {
	sess, err := dial()
	if err != nil {
		return err
	}
	defer sess.Close()

	done := make(chan error, 1)
	if err := sess.Controller.Zones.SetVolume(sess.Manager, sess.Conn, id, level, rootTimeoutFlag, func(_ []rxmatch.Match, err error) {
		done <- err
	}); err != nil {
		return err
	}
	if err := <-done; err != nil {
		return fmt.Errorf("setting zone %d volume: %w", id, err)
	}
	fmt.Printf("zone %d volume set to %d\n", id, level)
	return nil
}
