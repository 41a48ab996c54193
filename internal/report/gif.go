package report

import (
	"fmt"
	"image"
	"image/color"
	ipalette "image/color/palette"
	idraw "image/draw"
	"image/gif"
	"os"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// frameSize is the edge of a GIF frame; smaller than saved figures.
const frameSize = 6 * vg.Inch

type frameResult struct {
	Index   int
	Palette *image.Paletted
}

// Render rasterises p to an image.
func Render(p *plot.Plot) image.Image {
	c := vgimg.New(frameSize, frameSize)
	p.Draw(draw.New(c))
	return c.Image()
}

// WriteGIF renders plots as the frames of an animated GIF, each shown for
// delay hundredths of a second. Frames share the palette of the last one.
func (r *Run) WriteGIF(
	name string,
	plots []*plot.Plot,
	delay int,
) (err error) {
	if len(plots) == 0 {
		return fmt.Errorf("report: no frames for %s", name)
	}
	imgs := make([]image.Image, len(plots))
	for i, p := range plots {
		imgs[i] = Render(p)
	}
	anim := animate(imgs, delay)

	out, err := os.Create(r.Path(name))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	return gif.EncodeAll(out, anim)
}

func animate(imgs []image.Image, delay int) *gif.GIF {
	pal := generatePalette(imgs[len(imgs)-1])

	resultCh := make(chan frameResult, len(imgs))
	var wg sync.WaitGroup
	for index, img := range imgs {
		wg.Add(1)
		go convertToPaletted(index, img, pal, resultCh, &wg)
	}
	wg.Wait()
	close(resultCh)

	var frameResults []frameResult
	for result := range resultCh {
		frameResults = append(frameResults, result)
	}
	sort.Slice(frameResults, func(i, j int) bool {
		return frameResults[i].Index < frameResults[j].Index
	})

	anim := &gif.GIF{}
	for _, result := range frameResults {
		anim.Image = append(anim.Image, result.Palette)
		anim.Delay = append(anim.Delay, delay)
	}
	return anim
}

func convertToPaletted(
	index int,
	img image.Image,
	pal []color.Color,
	resultCh chan<- frameResult,
	wg *sync.WaitGroup,
) {
	defer wg.Done()
	paletted := image.NewPaletted(img.Bounds(), pal)
	idraw.Draw(paletted, img.Bounds(), img, image.Point{}, idraw.Over)
	resultCh <- frameResult{Index: index, Palette: paletted}
}

func generatePalette(img image.Image) []color.Color {
	paletted := image.NewPaletted(img.Bounds(), ipalette.Plan9)
	idraw.Draw(paletted, img.Bounds(), img, image.Point{}, idraw.Over)
	return paletted.Palette
}
