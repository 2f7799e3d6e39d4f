// =============================================================================
// Stock Scan - Scan Command
// =============================================================================
//
// COMMAND USAGE:
//   stockscan scan [--camera]
//
// Opens the interactive scan screen. Two producers feed the session at the
// same time, each in its own goroutine of one errgroup:
//   - the terminal: key bursts through the scan buffer, plus manual entry
//   - the camera:   an external decoder process (when enabled)
//
// Closing the screen stops the camera loop and waits for the decoder to be
// released. A camera that cannot start is reported once on screen; keyboard
// scanning keeps working.
//
// =============================================================================

package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/stock-scan/internal/camera"
	"github.com/ginjaninja78/stock-scan/internal/reconcile"
	"github.com/ginjaninja78/stock-scan/internal/scanbuffer"
	"github.com/ginjaninja78/stock-scan/internal/tui"
)

// useCamera overrides camera.enabled from the configuration.
var useCamera bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Open the interactive scan screen",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		cameraOn := env.cfg.Camera.Enabled
		if cmd.Flags().Changed("camera") {
			cameraOn = useCamera
		}
		return runScan(ctx, env, cameraOn)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(
		&useCamera,
		"camera",
		false,
		"Also read codes from the camera decoder (overrides camera.enabled)",
	)
}

func runScan(ctx context.Context, env *appEnv, cameraOn bool) error {
	g, gctx := errgroup.WithContext(ctx)
	cameraCtx, stopCamera := context.WithCancel(gctx)
	defer stopCamera()

	model := tui.New(gctx, env.session, scanbuffer.Settings{
		GapThreshold: env.cfg.Scan.GapThreshold,
		CommitDelay:  env.cfg.Scan.CommitDelay,
		Terminator:   env.cfg.Scan.TerminatorKey,
	}, tui.WithAllLabel(env.cfg.Table.AllCategoriesLabel))
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))

	g.Go(func() error {
		defer stopCamera()
		_, err := program.Run()
		return err
	})

	if cameraOn {
		g.Go(func() error {
			return runCamera(cameraCtx, env, program)
		})
	}

	env.logger.Info("scan screen opened", zap.Bool("camera", cameraOn))
	return g.Wait()
}

// runCamera drives the decoder until ctx ends. Camera failures never end
// the scan screen.
func runCamera(ctx context.Context, env *appEnv, program *tea.Program) error {
	decoder, err := camera.NewCommandDecoder(env.cfg.Camera.Command)
	if err != nil {
		env.logger.Warn("camera unavailable", zap.Strings("command", env.cfg.Camera.Command), zap.Error(err))
		program.Send(tui.CameraStoppedMsg{Err: err})
		return nil
	}

	loop := camera.NewLoop(decoder, env.cfg.Camera.FrameInterval, func(code string) {
		env.session.Submit(ctx, code, reconcile.SourceCamera)
	}, env.logger)

	go func() {
		<-ctx.Done()
		loop.Stop()
	}()

	if err := loop.Run(ctx); err != nil {
		program.Send(tui.CameraStoppedMsg{Err: err})
	}
	return nil
}
