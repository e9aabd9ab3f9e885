package common

import (
	"errors"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/spf13/cobra"

	"gitpersona/pkg/git"
	"gitpersona/pkg/github"
)

// ScanFlags are accepted by every scanning command.
type ScanFlags struct {
	Exclude  *[]string
	FExclude *string
	Insecure *bool
}

type AuthFlags struct {
	Username   *string
	Token      *string
	SshKeyPath *string
	PassPrompt *bool
}

// AddScanFlags registers the flags shared by the scanning commands. Flags
// backed by configuration keys only carry their defaults for help output.
func AddScanFlags(cmd *cobra.Command) *ScanFlags {
	f := cmd.Flags()
	f.Int("threads", 10, "Concurrent clones and extractions")
	f.Duration("timeout", 0, "Per-repository clone and extraction timeout (default 10m)")
	f.String("history", "all", "Commits to walk: all refs or the default branch (all|default)")
	f.String("backend", "go-git", "Extraction backend (go-git|exec)")
	f.Bool("keep", false, "Keep cloned repositories")
	f.String("workdir", "", "Directory for clones (default system temp dir)")
	return &ScanFlags{
		Exclude:  f.StringSlice("exclude", []string{}, "Additional email patterns to ignore"),
		FExclude: f.String("fexclude", "", "File with newline-delimited email patterns to ignore"),
		Insecure: f.Bool("insecure", false, "Skip TLS certificate verification when cloning"),
	}
}

// AddAPIFlags registers the GitHub API endpoints, bound to github.base_url
// and github.upload_url.
func AddAPIFlags(cmd *cobra.Command) {
	cmd.Flags().String("baseurl", github.DefaultBaseURL, "GitHub Base API URL")
	cmd.Flags().String("uploadurl", github.DefaultUploadURL, "GitHub Upload API URL")
}

func AddAuthFlags(cmd *cobra.Command, tokenUsage string) *AuthFlags {
	f := cmd.Flags()
	return &AuthFlags{
		Username:   f.StringP("username", "u", "", "Git authentication username"),
		Token:      f.StringP("token", "t", "", tokenUsage),
		SshKeyPath: f.String("ssh", "", "Path to the Git authentication key"),
		PassPrompt: f.BoolP("pass", "p", false, "Password prompt"),
	}
}

// Resolve prompts for the secret when asked and fills the token from the
// configuration when no flag was given.
func (a *AuthFlags) Resolve() error {
	if *a.PassPrompt {
		secret, err := PromptSecret("Enter password: ")
		if err != nil {
			return err
		}
		*a.Token = secret
	}
	if *a.Token == "" && settings != nil {
		*a.Token = settings.GitHub.Token
	}
	if *a.SshKeyPath != "" {
		if _, err := os.Stat(*a.SshKeyPath); err != nil {
			return err
		}
	}
	return nil
}

// Method returns the transport authentication for clones, nil when none
// was requested.
func (a *AuthFlags) Method() (transport.AuthMethod, error) {
	if a == nil {
		return nil, nil
	}
	switch {
	case *a.SshKeyPath != "":
		user := *a.Username
		if user == "" {
			user = "git"
		}
		return git.NewSSHAuth(user, *a.SshKeyPath, *a.Token)
	case *a.Username != "" && *a.Token != "":
		return git.NewBasicAuth(*a.Username, *a.Token), nil
	case *a.Username != "":
		return nil, errors.New("--username needs --token or --pass")
	}
	return nil, nil
}
