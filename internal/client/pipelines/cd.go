// Package pipelines implements the client command pipelines of spec
// §4.6: cd, pwd, ls and get, each a small explicit state machine
// chaining requests against internal/client's Engine, with best-effort
// cleanup on failure.
package pipelines

import (
	"time"

	"github.com/isobusfs/isobusfs/internal/client"
	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// codeErr turns a non-success wire code into an *isoerrors.Error the
// same way a NACK or timeout would be reported to a pipeline callback.
func codeErr(code isoerrors.Code, msg string) error {
	if code.Ok() {
		return nil
	}
	return isoerrors.New(isoerrors.KindSession, code, msg)
}

// ChangeDir runs a single ChangeCurrentDir request to completion (spec
// §4.6 "cd: single CCD request; pipeline completes on response").
func ChangeDir(e *client.Engine, path string, done func(error)) error {
	return e.ChangeDirReq(time.Now(), path, func(resp wire.ChangeCurrentDirResp, err error) {
		if err != nil {
			e.SetState(client.Failed(client.OpChangeDir, err))
			done(err)
			return
		}
		if cerr := codeErr(resp.Code, "change_dir"); cerr != nil {
			e.SetState(client.Failed(client.OpChangeDir, cerr))
			done(cerr)
			return
		}
		e.SetState(client.Done(client.OpChangeDir))
		done(nil)
	})
}
