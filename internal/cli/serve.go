package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/wordrules/internal/server"
)

var serveNoWatch bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live table and the record save/list API",
	Long: `Serve exposes the record store over HTTP:

  GET  /                      interactive word x rule table
  GET  /export.csv            CSV export (hide_true, hide_false, hide_category, search)
  GET  /api/words             stored record names
  GET  /api/words/{id}        one record
  POST /api/save-word/{id}    replace the record stored under id
  GET  /metrics               Prometheus metrics

With the file store, changes made by other processes are picked up
automatically.

Example:
  wordrules serve
  wordrules serve --addr 127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not watch the words directory for changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	if f := cmd.Flags().Lookup("addr"); f.Changed {
		_ = viper.BindPFlag("server.addr", f)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.store, a.catalog,
		server.WithLogger(a.logger),
		server.WithMetrics(a.metrics, a.reg),
	)

	backend := strings.ToLower(cfg.Store.Backend)
	if backend == "" {
		backend = "file"
	}
	if !serveNoWatch && backend == "file" {
		if err := srv.Watch(ctx, cfg.Store.Dir); err != nil {
			a.logger.Warn("record watcher disabled", "dir", cfg.Store.Dir, "error", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Serving %d rules over %s store on http://%s\n", a.catalog.Len(), backend, displayAddr(cfg.Server.Addr))
	return srv.Run(ctx, cfg.Server.Addr)
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
