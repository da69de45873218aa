package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownloadURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		isPDF bool
		want  string
	}{
		{
			name:  "pdf under image delivery",
			url:   "https://res.cloudinary.com/demo/image/upload/v1/proj/doc",
			isPDF: true,
			want:  "https://res.cloudinary.com/demo/raw/upload/v1/proj/doc?fl_attachment",
		},
		{
			name:  "pdf already flagged",
			url:   "https://res.cloudinary.com/demo/image/upload/v1/proj/doc?fl_attachment",
			isPDF: true,
			want:  "https://res.cloudinary.com/demo/raw/upload/v1/proj/doc?fl_attachment",
		},
		{
			name: "image keeps delivery path",
			url:  "https://res.cloudinary.com/demo/image/upload/v1/proj/photo.jpg",
			want: "https://res.cloudinary.com/demo/image/upload/v1/proj/photo.jpg?fl_attachment",
		},
		{
			name: "existing query",
			url:  "https://cdn.example/file.docx?v=2",
			want: "https://cdn.example/file.docx?v=2&fl_attachment",
		},
		{
			name: "empty",
			url:  "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DownloadURL(tt.url, tt.isPDF))
		})
	}
}

func TestResourceTypeOf(t *testing.T) {
	assert.Equal(t, "raw", ResourceTypeOf("https://res.cloudinary.com/demo/raw/upload/v1/a"))
	assert.Equal(t, "video", ResourceTypeOf("https://res.cloudinary.com/demo/video/upload/v1/a"))
	assert.Equal(t, "image", ResourceTypeOf("https://res.cloudinary.com/demo/image/upload/v1/a"))
}
