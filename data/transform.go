package data

import (
	"image"
	"math/rand"

	"github.com/disintegration/imaging"
)

// Transform mutates a decoded image/mask pair before tensor conversion.
// Geometric changes must be applied to both.
type Transform func(img, mask image.Image) (image.Image, image.Image)

// RandomFlip flips the pair horizontally and vertically, each with
// probability 0.5.
func RandomFlip(rnd *rand.Rand) Transform {
	return func(img, mask image.Image) (image.Image, image.Image) {
		if rnd.Float64() > 0.5 {
			img = imaging.FlipH(img)
			mask = imaging.FlipH(mask)
		}
		if rnd.Float64() > 0.5 {
			img = imaging.FlipV(img)
			mask = imaging.FlipV(mask)
		}

		return img, mask
	}
}
