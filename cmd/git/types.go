package git

import "gitpersona/cmd/common"

type options struct {
	URL       *string
	Dir       *string
	Recursive *bool
	Verify    *bool
	Auth      *common.AuthFlags
	Scan      *common.ScanFlags
}
