package git

import (
	"errors"

	"github.com/spf13/cobra"

	"gitpersona/cmd/common"
	"gitpersona/pkg/scan"
)

var opts options

func NewCommand() *cobra.Command {
	analyseCmd := &cobra.Command{
		Use:   "git",
		Short: "Extract identities from a Git repository or a directory of repositories",
		RunE:  analyseMain,
	}

	opts = options{}
	opts.URL = analyseCmd.Flags().String("url", "", "Remote repository to clone and analyse")
	opts.Dir = analyseCmd.Flags().String("dir", "", "Local repository, or directory of repositories with --recursive")
	opts.Recursive = analyseCmd.Flags().BoolP("recursive", "r", false, "Search --dir recursively for repositories")
	opts.Verify = analyseCmd.Flags().Bool("verify", false, "Look up the GitHub account behind identities of GitHub-hosted commits")
	opts.Auth = common.AddAuthFlags(analyseCmd, "Git authentication token or password, also used for the GitHub API")
	common.AddAPIFlags(analyseCmd)
	opts.Scan = common.AddScanFlags(analyseCmd)
	analyseCmd.Flags().SortFlags = false
	return analyseCmd
}

func (o options) validate() (scan.Source, error) {
	if (*o.URL != "") == (*o.Dir != "") {
		return scan.Source{}, errors.New("specify either --url or --dir")
	}
	if *o.Recursive && *o.Dir == "" {
		return scan.Source{}, errors.New("--recursive needs --dir")
	}
	if err := o.Auth.Resolve(); err != nil {
		return scan.Source{}, err
	}
	return scan.Source{URL: *o.URL, Dir: *o.Dir, Recursive: *o.Recursive}, nil
}

func analyseMain(cmd *cobra.Command, args []string) error {
	src, err := opts.validate()
	if err != nil {
		return err
	}

	filter, err := common.NewFilter(*opts.Scan.Exclude, *opts.Scan.FExclude)
	if err != nil {
		return err
	}

	// Verification only applies to commits of repositories hosted on the
	// platform; local directories and other hosts are skipped.
	var hosting scan.Hosting
	accountURL := ""
	if *opts.Verify {
		client, err := common.NewClient(*opts.Auth.Token)
		if err != nil {
			return err
		}
		platform, u, err := common.NewPlatform(client, false, false)
		if err != nil {
			return err
		}
		hosting, accountURL = platform, u
	}

	ctx := cmd.Context()
	s, cleanup, err := common.NewScanner(ctx, opts.Auth, opts.Scan, hosting)
	if err != nil {
		return err
	}
	defer cleanup()

	return common.Scan(ctx, s, src, filter, *opts.Verify, accountURL)
}
