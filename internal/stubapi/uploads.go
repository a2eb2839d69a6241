package stubapi

import (
	"io"
	"net/http"

	"github.com/Esmakirs9082/chat-sub000/internal/ids"
)

type uploadResponse struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// handleUpload accepts a multipart file and pretends to store it. The stub
// only measures the payload and hands back a synthetic URL.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "file field is required")
		return
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		internalError(w)
		return
	}

	id, err := ids.New("upl")
	if err != nil {
		internalError(w)
		return
	}

	s.logger.Info("upload received", "name", header.Filename, "bytes", size)
	writeData(w, http.StatusCreated, uploadResponse{
		URL:  "/uploads/" + id,
		Size: size,
	})
}
