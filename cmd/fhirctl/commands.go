package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthbridge/healthbridge/internal/auth"
	"github.com/healthbridge/healthbridge/internal/config"
	"github.com/healthbridge/healthbridge/internal/fhir"
	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/telemetry"
)

// app is the state shared by every subcommand.
type app struct {
	cfg       config.Config
	telemetry *telemetry.Provider
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "fhirctl",
		Short:        "Inspect FHIR documents and manage HealthBridge tokens",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}

	root.AddCommand(
		a.detectCmd(),
		a.parseCmd(),
		a.bundleCmd(),
		a.capabilitiesCmd(),
		a.tokenCmd(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.telemetry, err = telemetry.Init(contextOrBackground(ctx), telemetry.Config{
		ServiceName:    "fhirctl",
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	return err
}

func (a *app) close(ctx context.Context) error {
	if a.telemetry == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(contextOrBackground(ctx), 5*time.Second)
	defer cancel()
	return a.telemetry.Shutdown(ctx)
}

func (a *app) instruments() *telemetry.Instruments {
	if a.telemetry == nil {
		return nil
	}
	return a.telemetry.Instruments
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func (a *app) detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE...",
		Short: "Print the resourceType of each document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, path := range args {
				doc, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				rt, ok := fhir.DetectResourceType(doc)
				if !ok {
					rt = "-"
				}
				fmt.Fprintf(w, "%s\t%s\n", path, rt)
			}
			return w.Flush()
		},
	}
}

// parsed is one line of parse output.
type parsed struct {
	File         string        `json:"file"`
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Resource     fhir.Resource `json:"resource"`
}

func (a *app) parseCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Parse documents and print each resource as a JSON line",
		Long: "Parse decodes every document and prints one JSON line per resource. " +
			"Documents of unsupported types are skipped; failures are reported on stderr " +
			"and make the command exit non-zero once all documents are processed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([][]byte, len(args))
			for i, path := range args {
				doc, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				docs[i] = doc
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			inst := a.instruments()
			failed := 0
			for res := range results(docs, strict) {
				path := args[res.Index]
				if res.Err != nil {
					failed++
					rt, _ := fhir.DetectResourceType(docs[res.Index])
					inst.ResourceParsed(cmd.Context(), rt, res.Err)
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, res.Err)
					continue
				}
				inst.ResourceParsed(cmd.Context(), res.Resource.ResourceType(), nil)
				if err := enc.Encode(parsed{
					File:         path,
					ResourceType: res.Resource.ResourceType(),
					ID:           res.Resource.ResourceID(),
					Resource:     res.Resource,
				}); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed to parse", failed, len(docs))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject documents with more than one member of a choice type")
	return cmd
}

func results(docs [][]byte, strict bool) iter.Seq[fhir.Result] {
	if !strict {
		return fhir.Results(docs)
	}
	return func(yield func(fhir.Result) bool) {
		for i, doc := range docs {
			r, err := fhir.ParseResourceStrict(doc)
			if r == nil && err == nil {
				continue
			}
			if !yield(fhir.Result{Index: i, Resource: r, Err: err}) {
				return
			}
		}
	}
}

func (a *app) bundleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle FILE",
		Short: "Stream the entries of a Bundle",
		Long:  "Bundle parses entries one at a time and prints a line per entry. Use - to read stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tTYPE\tID\tSTATUS")
			inst := a.instruments()
			var entries, failed int
			for res := range fhir.StreamBundle(cmd.Context(), r) {
				if res.Index < 0 {
					_ = w.Flush()
					return res.Err
				}
				entries++

				status, id, rt := "ok", "-", res.ResourceType
				switch {
				case res.Err != nil:
					failed++
					status = "error: " + res.Err.Error()
					inst.ResourceParsed(cmd.Context(), rt, res.Err)
				case res.Resource == nil:
					status = "skipped"
				default:
					id = res.Resource.ResourceID()
					inst.ResourceParsed(cmd.Context(), rt, nil)
				}
				if rt == "" {
					rt = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", res.Index, rt, id, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d entries failed to parse", failed, entries)
			}
			return nil
		},
	}
}

func (a *app) capabilitiesCmd() *cobra.Command {
	var (
		platform string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Print the read/write capability table of a platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.cfg.Platform
			if platform != "" {
				p = healthdata.Platform(platform)
			}
			if !slices.Contains(healthdata.SupportedPlatforms(), p) {
				return fmt.Errorf("unsupported platform %q", p)
			}

			table := healthdata.CapabilityTable(p)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"platform": p, "capabilities": table})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATA TYPE\tREAD\tWRITE")
			for _, dt := range healthdata.AllDataTypes() {
				c := table[dt]
				fmt.Fprintf(w, "%s\t%s\t%s\n", dt, yesNo(c.CanRead), yesNo(c.CanWrite))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "Platform to describe (healthkit or healthconnect); defaults to HB_PLATFORM")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (a *app) tokenCmd() *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator bearer token for the snapshot API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.JWTSigningKey == "" {
				return fmt.Errorf("JWT_SIGNING_KEY is not set")
			}
			for _, s := range scopes {
				if s != auth.ScopeRead && s != auth.ScopeControl {
					return fmt.Errorf("unknown scope %q", s)
				}
			}

			tokens := auth.NewTokenService(auth.Config{
				SigningKey: a.cfg.JWTSigningKey,
				Issuer:     a.cfg.JWTIssuer,
				Audience:   a.cfg.JWTAudience,
			})
			token, expiresAt, err := tokens.Issue(subject, ttl, scopes...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "scopes %s, expires %s\n", strings.Join(scopes, " "), expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "Token subject")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeRead}, "Scopes to grant (health:read, health:control)")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenExpiry, "Token lifetime")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	r, closeFn, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return io.ReadAll(r)
}

// openInput opens path, or the command's stdin for "-".
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
