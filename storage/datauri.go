package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
)

// dataURIUploader — запасной вариант при отсутствии настроенного бакета:
// содержимое кодируется в data-URL и сохраняется прямо в записи.
// Объекты нигде не хранятся, поэтому Delete ничего не делает, а "ключом"
// служит сам data-URL.
type dataURIUploader struct {
	maxSize int64
}

const dataURIMaxSize = 2 << 20 // 2MB: data-URL хранится в строке таблицы

func NewDataURIUploader() FileUploader {
	return &dataURIUploader{maxSize: dataURIMaxSize}
}

func (u *dataURIUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	data, err := io.ReadAll(io.LimitReader(reader, u.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload payload: %w", err)
	}
	if int64(len(data)) > u.maxSize {
		return nil, fmt.Errorf("upload payload exceeds %d bytes for inline storage", u.maxSize)
	}

	uri := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	return &UploadResult{
		Key:      uri,
		Location: uri,
	}, nil
}

func (u *dataURIUploader) Delete(ctx context.Context, key string) error {
	return nil
}

func (u *dataURIUploader) GetPublicURL(key string) string {
	return key
}
