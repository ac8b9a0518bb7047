package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crewdesk/crewdesk/internal/gateway"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		host := rt.cfg.Gateway.Host
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		port := rt.cfg.Gateway.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		printHeader("🚀 CrewDesk Gateway")
		fmt.Printf("Agents:  %d\n", len(rt.registry.AgentIDs()))
		if rt.producer.Enabled() {
			fmt.Printf("Kafka:   %v\n", rt.cfg.Queue.Brokers)
		} else {
			fmt.Println("Kafka:   disabled (jobs are dropped)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := fmt.Sprintf("%s:%d", host, port)
		srv := gateway.New(rt.registry, rt.team, rt.store, rt.memory)
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			return err
		}
		slog.Info("Gateway stopped")
		return nil
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveHost, "host", "127.0.0.1", "Listen host")
	f.IntVar(&servePort, "port", 8080, "Listen port")
}
