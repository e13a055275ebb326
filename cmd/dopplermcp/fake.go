package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dopplerkit/dopplermcp/mcptest"
)

var fakeWSAddr string

var fakeCmd = &cobra.Command{
	Use:   "fake",
	Short: "Run a seeded in-memory Doppler MCP server",
	Long: "Serve the fake Doppler world over stdio, newline-delimited JSON-RPC.\n" +
		"With --ws it listens on a websocket endpoint at /mcp instead. Useful\n" +
		"for demos and for exercising clients without a Doppler account.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := mcptest.NewDopplerServer(mcptest.DefaultSeed())

		if fakeWSAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/mcp", srv.WebSocketHandler())
			httpSrv := &http.Server{
				Addr:              fakeWSAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				_ = httpSrv.Close()
			}()

			logrus.WithField("addr", fakeWSAddr).Info("fake doppler server listening on ws://" + fakeWSAddr + "/mcp")
			err := httpSrv.ListenAndServe()
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}

		logrus.WithField("tools", len(srv.Tools())).Info("fake doppler server listening on stdio")
		err := srv.ServeStdio(cmd.Context(), os.Stdin, os.Stdout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(fakeCmd)

	fakeCmd.Flags().StringVar(&fakeWSAddr, "ws", "", "serve over websocket on this address instead of stdio")
}
