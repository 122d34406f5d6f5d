// Package transcoder re-encodes local images as compressed JPEG.
package transcoder

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 50

type Transcoder struct{}

func New() *Transcoder {
	return &Transcoder{}
}

// Transcode reads the image at src and writes a JPEG at the given
// quality to dest. The source file is left in place.
func (t *Transcoder) Transcode(src, dest string, quality int) error {
	const op = "transcoder.Transcode"

	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := imaging.Save(img, dest, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
