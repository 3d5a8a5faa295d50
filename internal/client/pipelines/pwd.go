package pipelines

import (
	"time"

	"github.com/isobusfs/isobusfs/internal/client"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// PrintWorkingDir runs a single GetCurrentDir request (spec §4.6 "pwd:
// single GetCurrentDir request; pipeline prints name").
func PrintWorkingDir(e *client.Engine, done func(path string, err error)) error {
	return e.GetCurrentDirReq(time.Now(), func(resp wire.GetCurrentDirResp, err error) {
		if err != nil {
			e.SetState(client.Failed(client.OpGetCurrentDir, err))
			done("", err)
			return
		}
		if cerr := codeErr(resp.Code, "get_current_dir"); cerr != nil {
			e.SetState(client.Failed(client.OpGetCurrentDir, cerr))
			done("", cerr)
			return
		}
		e.SetState(client.Done(client.OpGetCurrentDir))
		done(resp.Path, nil)
	})
}
