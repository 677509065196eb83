package media

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// smallest valid PNG header + IHDR chunk start
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestClassify(t *testing.T) {
	tests := []struct {
		mime    string
		want    model.ContentType
		wantErr bool
	}{
		{"image/png", model.ContentImage, false},
		{"image/jpeg; charset=binary", model.ContentImage, false},
		{"video/mp4", model.ContentVideo, false},
		{"VIDEO/WEBM", model.ContentVideo, false},
		{"text/plain", "", true},
		{"application/pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			got, err := Classify(tt.mime)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedMediaType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect(t *testing.T) {
	t.Run("sniffed image", func(t *testing.T) {
		info, err := Detect(bytes.NewReader(pngHeader), "")
		require.NoError(t, err)
		assert.Equal(t, "image/png", info.MimeType)
		assert.Equal(t, model.ContentImage, info.Type)
	})

	t.Run("content wins over a lying header", func(t *testing.T) {
		_, err := Detect(bytes.NewReader([]byte("just some notes\n")), "video/mp4")
		assert.ErrorIs(t, err, ErrUnsupportedMediaType)
	})

	t.Run("unknown bytes fall back to declared type", func(t *testing.T) {
		info, err := Detect(bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03}), "video/x-custom")
		require.NoError(t, err)
		assert.Equal(t, model.ContentVideo, info.Type)
	})
}
