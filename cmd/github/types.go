package github

import "gitpersona/cmd/common"

type options struct {
	Nickname *string
	Forks    *bool
	Orgs     *bool
	Verify   *bool
	Rate     *bool
	Auth     *common.AuthFlags
	Scan     *common.ScanFlags
}
