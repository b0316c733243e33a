// Command hlxserverd emulates the HLX matrix/zone amplifier's telnet
// control surface for driving cmd/hlxctl or cmd/hlxproxyd against
// something other than real hardware.
package main

import (
	"context"
	"fmt"
	"log/syslog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/hlxstats"
	"github.com/gerickson-labs/hlxgo/topctrl"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

const daemonVersion = "1.0.0"
const defaultListenAddr = ":8899"
const defaultMonitoringPort = 8901

// serverStats adapts a command.Manager and hlxconn.Manager to
// hlxstats.Source.
type serverStats struct {
	cmdMgr  *command.Manager
	connMgr *hlxconn.Manager
}

func (s serverStats) ErrorCount() uint64         { return s.cmdMgr.ErrorCount() }
func (s serverStats) ActiveDownstreamCount() int { return len(s.connMgr.ActiveConnections()) }

func configureLogging(quiet, syslogEnabled bool, debugLevel, verboseLevel string) {
	log.SetLevel(log.WarnLevel)
	if verboseLevel != "" {
		log.SetLevel(log.InfoLevel)
	}
	if debugLevel != "" {
		log.SetLevel(log.DebugLevel)
	}
	if quiet {
		log.SetLevel(log.ErrorLevel)
	}
	if syslogEnabled {
		w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, "hlxserverd")
		if err != nil {
			log.Warnf("hlxserverd: failed to connect to syslog, logging to stderr: %v", err)
			return
		}
		log.SetOutput(w)
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("hlxserverd", flag.ContinueOnError)

	var (
		debugFlag          string
		helpFlag           bool
		ipv4OnlyFlag       bool
		ipv6OnlyFlag       bool
		quietFlag          bool
		syslogFlag         bool
		verboseFlag        string
		versionFlag        bool
		monitoringPortFlag int
	)

	fs.StringVarP(&debugFlag, "debug", "d", "", "enable debug logging, with an optional numeric level")
	fs.Lookup("debug").NoOptDefVal = "1"
	fs.BoolVarP(&helpFlag, "help", "h", false, "show usage")
	fs.BoolVarP(&ipv4OnlyFlag, "ipv4-only", "4", false, "listen IPv4 only")
	fs.BoolVarP(&ipv6OnlyFlag, "ipv6-only", "6", false, "listen IPv6 only")
	fs.BoolVarP(&quietFlag, "quiet", "q", false, "suppress all but error logging")
	fs.BoolVarP(&syslogFlag, "syslog", "s", false, "send logs to syslog instead of stderr")
	fs.StringVarP(&verboseFlag, "verbose", "v", "", "verbose output, with an optional numeric level")
	fs.Lookup("verbose").NoOptDefVal = "1"
	fs.BoolVarP(&versionFlag, "version", "V", false, "print the version and exit")
	fs.IntVar(&monitoringPortFlag, "monitoringport", defaultMonitoringPort, "port to run the hlxstats JSON monitoring server on")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if helpFlag {
		fmt.Fprintln(os.Stdout, "usage: hlxserverd [flags] [listen-host[:port]]")
		fmt.Fprintln(os.Stdout, fs.FlagUsages())
		return 0
	}
	if versionFlag {
		fmt.Fprintf(os.Stdout, "hlxserverd %s\n", daemonVersion)
		return 0
	}
	if ipv4OnlyFlag && ipv6OnlyFlag {
		fmt.Fprintln(os.Stderr, "hlxserverd: -4/--ipv4-only and -6/--ipv6-only are mutually exclusive")
		return 1
	}

	configureLogging(quietFlag, syslogFlag, debugFlag, verboseFlag)

	listenAddr := defaultListenAddr
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "usage: hlxserverd [flags] [listen-host[:port]]")
		return 1
	}
	if fs.NArg() == 1 {
		listenAddr = fs.Arg(0)
	}

	var versions []hlxconn.IPVersion
	switch {
	case ipv4OnlyFlag:
		versions = []hlxconn.IPVersion{hlxconn.IPv4}
	case ipv6OnlyFlag:
		versions = []hlxconn.IPVersion{hlxconn.IPv6}
	}

	controller := topctrl.New()
	controller.Init()

	connMgr := hlxconn.NewManager()

	cmdMgr := command.NewManager(5 * time.Second)
	if err := controller.RegisterServer(cmdMgr, connMgr); err != nil {
		log.Errorf("hlxserverd: failed to register object controllers: %v", err)
		return 1
	}

	connMgr.AddDelegate(hlxconn.ManagerDelegate{
		DidAccept: func(conn *hlxconn.Connection) {
			log.Debugf("hlxserverd: accepted connection from %s", conn.RemoteAddr())
		},
		DidDisconnect: func(conn *hlxconn.Connection, err error) {
			log.Debugf("hlxserverd: connection from %s disconnected: %v", conn.RemoteAddr(), err)
			cmdMgr.CloseConnection(conn)
		},
	})
	connMgr.SetApplicationDataDelegate(func(conn *hlxconn.Connection, data []byte) {
		cmdMgr.HandleRequest(conn, data)
	})

	st := hlxstats.New(serverStats{cmdMgr: cmdMgr, connMgr: connMgr})
	go st.Start(monitoringPortFlag)

	if err := connMgr.Listen(listenAddr, versions...); err != nil {
		log.Errorf("hlxserverd: failed to listen on %s: %v", listenAddr, err)
		return 1
	}
	log.Infof("hlxserverd: emulating HLX hardware on %s", listenAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("hlxserverd: shutting down")
	connMgr.Close()
	return 0
}
