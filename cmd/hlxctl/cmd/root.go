package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/topctrl"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is a main entry point. It's exported so hlxctl could be
// easily extended without touching core functionality.
var RootCmd = &cobra.Command{
	Use:   "hlxctl",
	Short: "interactive client for an HLX matrix/zone amplifier control plane",
}

var (
	rootServerFlag  string
	rootTimeoutFlag time.Duration
	rootVerboseFlag bool
)

func init() {
	RootCmd.PersistentFlags().StringVarP(&rootServerFlag, "server", "s", "localhost:8899", "address of the hlxproxyd or hlxserverd to connect to")
	RootCmd.PersistentFlags().DurationVarP(&rootTimeoutFlag, "timeout", "t", 5*time.Second, "command exchange timeout")
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
}

// ConfigureVerbosity configures log verbosity based on parsed flags.
// Needs to be called by any subcommand.
func ConfigureVerbosity() {
	log.SetLevel(log.WarnLevel)
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

// session is one connected client: a Top-Level Controller mirroring the
// peer's model, plus the Command Manager/Connection pair driving it.
type session struct {
	Controller *topctrl.Controller
	Manager    *command.Manager
	Conn       *hlxconn.Connection
	connMgr    *hlxconn.Manager
}

// dial connects to --server, registering every object controller's
// client-role notification handlers before the handshake completes so
// no early notification is dropped.
func dial() (*session, error) {
	ctrl := topctrl.New()
	ctrl.Init()

	mgr := command.NewManager(rootTimeoutFlag)
	if err := ctrl.RegisterClient(mgr); err != nil {
		return nil, fmt.Errorf("registering client handlers: %w", err)
	}

	connMgr := hlxconn.NewManager()
	connMgr.SetApplicationDataDelegate(func(conn *hlxconn.Connection, data []byte) {
		mgr.HandleResponse(conn, data)
	})

	conn, err := connMgr.Connect(context.Background(), rootServerFlag, rootTimeoutFlag)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", rootServerFlag, err)
	}

	return &session{Controller: ctrl, Manager: mgr, Conn: conn, connMgr: connMgr}, nil
}

// Close tears the session's connection down.
func (s *session) Close() { _ = s.Conn.Close() }

// Execute is the main entry point for the CLI interface.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
