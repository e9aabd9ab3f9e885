package common

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gitpersona/pkg/config"
	"gitpersona/pkg/git"
	"gitpersona/pkg/github"
	"gitpersona/pkg/identity"
	"gitpersona/pkg/logger"
	"gitpersona/pkg/report"
	"gitpersona/pkg/scan"
)

var (
	settings   *config.Config
	runID      string
	output     io.Writer = os.Stdout
	outputFile *os.File
)

// Setup loads the configuration for cmd, opens the report output and stores
// a logger in the command context.
func Setup(cmd *cobra.Command, configPath, outputPath string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		cfg.Report.Color = "never"
	}
	settings = cfg
	runID = uuid.NewString()

	log := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
		RunID:  runID,
	})
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx, log))

	return SetOutput(outputPath, cmd.OutOrStdout())
}

func Config() *config.Config {
	return settings
}

// SetOutput sends reports to path, or to fallback when path is empty.
func SetOutput(path string, fallback io.Writer) error {
	if path == "" {
		output = fallback
		return nil
	}
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	outputFile = f
	output = f
	return nil
}

// Close releases the report output file, if any.
func Close() error {
	if outputFile == nil {
		return nil
	}
	err := outputFile.Close()
	outputFile = nil
	return err
}

func ReadFile(path string) ([]string, error) {
	var lines []string
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if scanner.Err() != nil {
		return nil, scanner.Err()
	}
	return lines, nil
}

// PromptSecret asks for a password without echoing it.
func PromptSecret(label string) (string, error) {
	templates := &promptui.PromptTemplates{
		Prompt:  "{{ . }}",
		Valid:   "{{ . }}",
		Success: "{{ . }}",
		Invalid: "{{ . }}",
	}
	prompt := promptui.Prompt{
		Label:       label,
		Mask:        '*',
		Templates:   templates,
		HideEntered: true,
	}
	return prompt.Run()
}

// NewFilter builds the identity filter from the configuration plus extra
// email patterns given on the command line or in a file.
func NewFilter(extra []string, file string) (*identity.Filter, error) {
	emails := append([]string{}, settings.Filter.Emails...)
	emails = append(emails, extra...)
	if file != "" {
		lines, err := ReadFile(file)
		if err != nil {
			return nil, err
		}
		emails = append(emails, lines...)
	}
	return identity.NewFilter(emails, settings.Filter.Names)
}

// NewClient builds a GitHub API client for the configured base and upload URLs.
func NewClient(token string) (*github.Client, error) {
	client, err := github.NewClient(token, settings.GitHub.BaseURL, settings.GitHub.UploadURL)
	if err != nil {
		return nil, fmt.Errorf("invalid client: (%w)", err)
	}
	return client, nil
}

// NewPlatform wraps client for the scanner. The returned URL prefixes
// verified account logins in reports.
func NewPlatform(client *github.Client, forks, orgs bool) (*github.Platform, string, error) {
	host, err := webHost(settings.GitHub.BaseURL)
	if err != nil {
		return nil, "", err
	}
	platform := github.NewPlatform(client, github.PlatformOptions{
		Host:  host,
		Forks: forks,
		Orgs:  orgs,
	})
	return platform, "https://" + host + "/", nil
}

// webHost maps the API base URL onto the host repositories are served from.
func webHost(baseURL string) (string, error) {
	if baseURL == "" || baseURL == github.DefaultBaseURL {
		return "github.com", nil
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid base url %q", baseURL)
	}
	if u.Host == "api.github.com" {
		return "github.com", nil
	}
	return u.Host, nil
}

// NewScanner wires the scanner from the configuration. The returned cleanup
// removes the work directory unless clones are kept.
func NewScanner(ctx context.Context, auth *AuthFlags, flags *ScanFlags, hosting scan.Hosting) (*scan.Scanner, func(), error) {
	mode, err := git.ParseHistoryMode(settings.Scan.History)
	if err != nil {
		return nil, nil, err
	}

	var extractor git.Extractor
	switch settings.Scan.Backend {
	case "exec":
		extractor = git.ExecExtractor{Mode: mode}
	default:
		extractor = git.GoGitExtractor{Mode: mode}
	}

	method, err := auth.Method()
	if err != nil {
		return nil, nil, err
	}

	base := settings.Scan.WorkDir
	if base == "" {
		base = os.TempDir()
	}
	workDir := filepath.Join(base, "gitpersona-"+runID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, nil, err
	}

	log := zerolog.Ctx(ctx)
	cleanup := func() {
		if settings.Scan.Keep {
			log.Info().Str("dir", workDir).Msg("clones kept")
			return
		}
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Str("dir", workDir).Msg("failed to remove work directory")
		}
	}

	s := &scan.Scanner{
		Cloner: &git.RemoteCloner{
			Auth:     method,
			Dir:      workDir,
			Timeout:  settings.Scan.Timeout,
			Bare:     true,
			Insecure: *flags.Insecure,
		},
		Extractor: extractor,
		Hosting:   hosting,
		Threads:   settings.Scan.Threads,
		Timeout:   settings.Scan.Timeout,
		Keep:      settings.Scan.Keep,
	}
	return s, cleanup, nil
}

// Scan runs the scanner over src and prints the report.
func Scan(ctx context.Context, s *scan.Scanner, src scan.Source, filter *identity.Filter, verify bool, accountURL string) error {
	log := zerolog.Ctx(ctx)
	state := identity.NewState(identity.WithFilter(filter))

	summary, err := s.Run(ctx, src, state)
	log.Info().
		Int("resolved", summary.Resolved).
		Int("scanned", summary.Scanned).
		Int("skipped", summary.Skipped).
		Msg("scan finished")
	if err != nil {
		return err
	}

	if verify {
		n, err := s.Verify(ctx, state)
		if err != nil {
			return err
		}
		log.Info().Int("accounts", n).Msg("accounts verified")
	}

	return Print(state, accountURL)
}

func Print(state *identity.State, accountURL string) error {
	format, err := report.ParseFormat(settings.Report.Format)
	if err != nil {
		return err
	}
	p := report.NewPrinter(output, report.Options{
		Format:     format,
		Verbose:    settings.Report.Verbose,
		Color:      useColor(settings.Report.Color, output),
		AccountURL: accountURL,
	})
	return p.Print(state)
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Summarize turns a scan error into the message shown to the user.
func Summarize(err error) string {
	var srcErr *scan.SourceError
	switch {
	case errors.Is(err, scan.ErrNoRepositories):
		return "no repositories found"
	case errors.As(err, &srcErr):
		return srcErr.Error()
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	return fmt.Sprint(err)
}
