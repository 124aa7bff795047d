package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/agenthands/topoclean/internal/config"
	"github.com/agenthands/topoclean/internal/core"
	"github.com/agenthands/topoclean/internal/core/common"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/drawing"
	"github.com/agenthands/topoclean/internal/store"
	"github.com/spf13/cobra"
)

// session is one drawing loaded into an in-memory store.
type session struct {
	doc     drawing.Document
	store   *store.MemoryStore
	cleaner *core.Cleaner
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to read --config flag: %w", err)
	}
	cfg := config.Default()
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func openSession(cmd *cobra.Command, path string) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	doc, err := drawing.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := store.NewMemoryStore()
	if _, err := doc.Load(cmd.Context(), s); err != nil {
		return nil, err
	}
	return &session{doc: doc, store: s, cleaner: core.NewCleaner(s, cfg, newLogger(cmd))}, nil
}

// write exports the session's drawing to --output, or stdout.
func (s *session) write(cmd *cobra.Command) error {
	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to read --output flag: %w", err)
	}
	doc, err := drawing.Export(cmd.Context(), s.store, s.doc.Name)
	if err != nil {
		return err
	}
	if out != "" {
		return drawing.WriteFile(out, doc)
	}
	data, err := common.Encode(doc, common.FormatYAML)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func checkRequest(cmd *cobra.Command) (core.CheckRequest, error) {
	var req core.CheckRequest
	name, err := cmd.Flags().GetString("action")
	if err != nil {
		return req, fmt.Errorf("failed to read --action flag: %w", err)
	}
	if req.Action, err = model.ParseActionType(name); err != nil {
		return req, err
	}
	tol, err := cmd.Flags().GetFloat64("tolerance")
	if err != nil {
		return req, fmt.Errorf("failed to read --tolerance flag: %w", err)
	}
	if tol >= 0 {
		req.Tolerance = &tol
	}
	sel, err := cmd.Flags().GetStringSlice("select")
	if err != nil {
		return req, fmt.Errorf("failed to read --select flag: %w", err)
	}
	for _, h := range sel {
		req.Selection = append(req.Selection, model.EntityHandle(h))
	}
	return req, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func RunActions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}
	actions := core.NewCleaner(store.NewMemoryStore(), cfg, nil).Actions()
	if asJSON {
		return printJSON(cmd.OutOrStdout(), actions)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tCATEGORY\tTOLERANCE\tFIX\tDESCRIPTION")
	for _, a := range actions {
		fixable := "yes"
		if !a.Fixable {
			fixable = "report"
		}
		tolerance := "-"
		if a.HasParameters {
			tolerance = fmt.Sprintf("%g", a.Tolerance)
		}
		if !a.Enabled {
			fixable = "off"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Type, a.Category, tolerance, fixable, a.Description)
	}
	return tw.Flush()
}

func RunCheck(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	req, err := checkRequest(cmd)
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}
	g, err := s.cleaner.Check(cmd.Context(), req)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), g)
	}
	w := cmd.OutOrStdout()
	for _, r := range g.Results {
		fmt.Fprintf(w, "%s\t%s\n", strings.Join(handles(r.SourceIDs), ","), r.Message)
	}
	fmt.Fprintln(w, s.cleaner.Summarizer.Group(g).String())
	return nil
}

func handles(hs []model.EntityHandle) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = string(h)
	}
	return out
}

func RunFix(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	req, err := checkRequest(cmd)
	if err != nil {
		return err
	}
	conv, err := s.cleaner.CheckAndFixAll(cmd.Context(), req)
	if err != nil && !errors.Is(err, model.ErrConvergenceExceeded) {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), conv.Total.String())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	return s.write(cmd)
}

func RunClean(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	names, err := cmd.Flags().GetStringSlice("sequence")
	if err != nil {
		return fmt.Errorf("failed to read --sequence flag: %w", err)
	}
	var seq []model.ActionType
	for _, n := range names {
		t, err := model.ParseActionType(n)
		if err != nil {
			return err
		}
		seq = append(seq, t)
	}
	rep, err := s.cleaner.RunSequence(cmd.Context(), seq, nil)
	for _, line := range rep.Lines {
		fmt.Fprintln(cmd.ErrOrStderr(), line)
	}
	if err != nil {
		return err
	}
	return s.write(cmd)
}

func RunPolygons(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	create, err := cmd.Flags().GetBool("create")
	if err != nil {
		return fmt.Errorf("failed to read --create flag: %w", err)
	}
	layer, err := cmd.Flags().GetString("layer")
	if err != nil {
		return fmt.Errorf("failed to read --layer flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}
	rep, err := s.cleaner.ExtractPolygons(cmd.Context(), core.PolygonRequest{Create: create, Layer: layer})
	if err != nil {
		return err
	}
	if create {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d faces created, %d dangling curves\n", len(rep.Created), len(rep.Dangling))
		return s.write(cmd)
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), rep)
	}
	w := cmd.OutOrStdout()
	for i, f := range rep.Faces {
		fmt.Fprintf(w, "face %d\tarea %g\t%s\n", i+1, f.Area, strings.Join(handles(f.Handles), ","))
	}
	if len(rep.Dangling) > 0 {
		fmt.Fprintf(w, "dangling\t%s\n", strings.Join(handles(rep.Dangling), ","))
	}
	return nil
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context, version string) error {
	return NewRootCommand(version).ExecuteContext(ctx)
}
