package github

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gitpersona/cmd/common"
	"gitpersona/pkg/scan"
)

var opts options

func NewCommand() *cobra.Command {
	githubCmd := &cobra.Command{
		Use:     "github",
		Short:   "Extract identities from every repository of a GitHub account",
		Aliases: []string{"gh"},
		RunE:    githubMain,
	}

	githubCmd.Flags().SortFlags = false
	opts = options{}
	opts.Nickname = githubCmd.Flags().StringP("nickname", "n", "", "GitHub user or organization")
	opts.Forks = githubCmd.Flags().Bool("forks", false, "Include forked repositories")
	opts.Orgs = githubCmd.Flags().Bool("orgs", false, "Include repositories of the user's organizations")
	opts.Verify = githubCmd.Flags().Bool("verify", false, "Look up the GitHub account behind each identity")
	opts.Rate = githubCmd.Flags().Bool("rate", false, "Print the rate limits of the current token and exit")
	common.AddAPIFlags(githubCmd)
	opts.Auth = common.AddAuthFlags(githubCmd, "GitHub authentication token")
	opts.Scan = common.AddScanFlags(githubCmd)

	return githubCmd
}

func (o options) validate() error {
	if *o.Nickname == "" && !*o.Rate {
		return errors.New("specify -n/--nickname")
	}
	return o.Auth.Resolve()
}

func githubMain(cmd *cobra.Command, args []string) error {
	if err := opts.validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	log := zerolog.Ctx(ctx)

	client, err := common.NewClient(*opts.Auth.Token)
	if err != nil {
		return err
	}

	if *opts.Rate {
		limits, err := client.RateLimits(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(limits)
	}

	// Private repositories are cloned with the login owning the token.
	if *opts.Auth.Token != "" && *opts.Auth.Username == "" && *opts.Auth.SshKeyPath == "" {
		current, err := client.GetUserOrOrganization(ctx, "")
		if err != nil {
			return fmt.Errorf("invalid token: (%w)", err)
		}
		*opts.Auth.Username = current.GetLogin()
		log.Debug().Str("login", current.GetLogin()).Msg("authenticated")
	}

	platform, accountURL, err := common.NewPlatform(client, *opts.Forks, *opts.Orgs)
	if err != nil {
		return err
	}

	filter, err := common.NewFilter(*opts.Scan.Exclude, *opts.Scan.FExclude)
	if err != nil {
		return err
	}

	s, cleanup, err := common.NewScanner(ctx, opts.Auth, opts.Scan, platform)
	if err != nil {
		return err
	}
	defer cleanup()

	return common.Scan(ctx, s, scan.Source{Nickname: *opts.Nickname}, filter, *opts.Verify, accountURL)
}
