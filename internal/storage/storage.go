package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

func CallArchiveObject(interviewID, callID string) string {
	return "calls/" + interviewID + "/" + callID + ".json"
}

// PutJSON encodes v and uploads it as application/json.
func PutJSON(ctx context.Context, u Uploader, objectName string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return u.Upload(ctx, objectName, "application/json", bytes.NewReader(b))
}
