package constants

import (
	"path/filepath"
	"strings"
)

const (
	FileTypeAudio    = "audio"
	FileTypeDocument = "document"
	FileTypePDF      = "pdf"
	FileTypeSlides   = "slides"
	FileTypeImage    = "image"
	FileTypeVideo    = "video"
	FileTypeOther    = "other"
)

func DetectFileTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3", ".wav", ".m4a":
		return FileTypeAudio
	case ".doc", ".docx", ".txt", ".md":
		return FileTypeDocument
	case ".pdf":
		return FileTypePDF
	case ".ppt", ".pptx":
		return FileTypeSlides
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return FileTypeImage
	case ".mp4", ".mov", ".webm":
		return FileTypeVideo
	default:
		return FileTypeOther
	}
}
