package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/core"
)

// V1DeleteFile handles DELETE /v1/files/{path}. A path ending in "/" removes
// the folder and everything below it. The response body is the BatchResult;
// a partial failure answers 207 with the same counts.
func V1DeleteFile(engine *core.Engine, hc HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, key, ok := requestTarget(w, r, logger)
		if !ok {
			return
		}

		ctx, cancel := hc.FileOpContext(r)
		defer cancel()

		result, err := engine.Delete(ctx, userID, key)
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		SendJSONResponse(w, logger, http.StatusOK, result)
	}
}
