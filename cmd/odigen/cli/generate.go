package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sghaida/odigen/config"
	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/emit"
	"github.com/sghaida/odigen/gen"
	"github.com/sghaida/odigen/load"
)

var (
	flagWatch bool
	flagOut   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Analyze annotated types and write generated wiring files",
	RunE:  runGenerate,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify generated wiring files are up to date",
	Long: `Runs the same analysis as generate but writes nothing; instead it
fails when any generated file is missing or stale. Intended for CI.`,
	RunE: runCheck,
}

func init() {
	generateCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "Re-run generation when source files change")
	generateCmd.Flags().StringVar(&flagOut, "out", "", "Generated file name per package (overrides the config file)")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if !flagWatch {
		return generateOnce(cmd.Context(), log)
	}

	w, err := newWatcher(flagDir, log, func(ctx context.Context) {
		if err := generateOnce(ctx, log); err != nil {
			log.Errorw("generation failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	// An initial run before watching, so the tree is current from the start.
	if err := generateOnce(cmd.Context(), log); err != nil {
		log.Errorw("generation failed", "error", err)
	}
	log.Infow("watching for changes", "dir", flagDir)
	return w.Run(cmd.Context())
}

func runCheck(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	res, cfg, err := analyze(cmd.Context(), log)
	if err != nil {
		return err
	}
	reportDiagnostics(log, res.Diagnostics)

	stale := 0
	for _, f := range res.Files {
		dir, err := outputDir(cfg, f.Pkg)
		if err != nil {
			return err
		}
		current, readErr := os.ReadFile(filepath.Join(dir, f.Name))
		if readErr != nil || !bytes.Equal(current, f.Source) {
			log.Warnw("generated file out of date", "package", f.Pkg, "file", f.Name)
			stale++
		}
	}
	if stale > 0 {
		return errors.Newf("%d generated file(s) out of date; run odigen generate", stale)
	}
	if res.HasErrors() {
		return errors.New("analysis reported errors")
	}
	log.Infow("generated files up to date", "files", len(res.Files))
	return nil
}

func generateOnce(ctx context.Context, log *zap.SugaredLogger) error {
	res, cfg, err := analyze(ctx, log)
	if err != nil {
		return err
	}
	reportDiagnostics(log, res.Diagnostics)

	for _, f := range res.Files {
		dir, err := outputDir(cfg, f.Pkg)
		if err != nil {
			return err
		}
		if err := emit.WriteFile(dir, f, 0o644); err != nil {
			return errors.Wrapf(err, "write %s", filepath.Join(dir, f.Name))
		}
		log.Debugw("wrote generated file", "package", f.Pkg, "file", f.Name)
	}
	log.Infow("generation complete",
		"files", len(res.Files),
		"diagnostics", len(res.Diagnostics))
	if res.HasErrors() {
		return errors.New("analysis reported errors")
	}
	return nil
}

func analyze(ctx context.Context, log *zap.SugaredLogger) (*gen.Result, config.Config, error) {
	cfgPath := flagConfig
	if cfgPath == "" {
		cfgPath = filepath.Join(flagDir, config.DefaultFileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	if flagOut != "" {
		cfg.Output = flagOut
	}

	raws, err := load.Packages(ctx, flagDir, cfg.Patterns)
	if err != nil {
		return nil, config.Config{}, err
	}
	log.Debugw("loaded declarations", "count", len(raws))

	res, err := gen.Run(raws, cfg)
	if err != nil {
		return nil, config.Config{}, err
	}
	return res, cfg, nil
}

// outputDir maps a generated file's package import path to its directory
// under the analyzed module.
func outputDir(_ config.Config, pkgPath string) (string, error) {
	modPath, err := load.ModulePath(flagDir)
	if err != nil {
		return "", err
	}
	return load.PackageDir(flagDir, modPath, pkgPath)
}

func reportDiagnostics(log *zap.SugaredLogger, diags []diag.Diagnostic) {
	for _, d := range diags {
		fields := []any{"code", string(d.Code), "types", d.Types}
		switch d.Severity {
		case diag.Error:
			log.Errorw(d.Message, fields...)
		default:
			log.Warnw(d.Message, fields...)
		}
	}
}
