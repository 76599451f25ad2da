package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/yungbote/movielens-insights/internal/export"
	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/types"
)

const ClusterScoresChartFile = "cluster_scores.png"

type ChartOptions struct {
	Width    int
	Height   int
	FontPath string
	FontSize float64
	Title    string
}

func (o ChartOptions) withDefaults() ChartOptions {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 480
	}
	if o.FontSize <= 0 {
		o.FontSize = 14
	}
	if o.Title == "" {
		o.Title = "Silhouette by cluster count"
	}
	return o
}

var (
	background = color.White
	axisColor  = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	gridColor  = color.RGBA{R: 225, G: 225, B: 225, A: 255}
	lineColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bestColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// RenderSilhouette draws silhouette against k for every scored candidate and
// marks the highest one. Unscored candidates leave a gap on the k axis.
func RenderSilhouette(w io.Writer, scores []types.ClusterScore, opts ChartOptions) error {
	opts = opts.withDefaults()
	var ok []types.ClusterScore
	for _, s := range scores {
		if s.OK() {
			ok = append(ok, s)
		}
	}
	if len(ok) == 0 {
		return apperr.Degenerate("no scored candidates to plot")
	}

	minK, maxK := scores[0].K, scores[0].K
	for _, s := range scores {
		minK = min(minK, s.K)
		maxK = max(maxK, s.K)
	}
	lo, hi := ok[0].Silhouette, ok[0].Silhouette
	best := ok[0]
	for _, s := range ok {
		lo = math.Min(lo, s.Silhouette)
		hi = math.Max(hi, s.Silhouette)
		if s.Silhouette > best.Silhouette {
			best = s
		}
	}
	lo, hi = padRange(lo, hi)

	dc := gg.NewContext(opts.Width, opts.Height)
	if opts.FontPath != "" {
		face, err := loadFontFace(opts.FontPath, opts.FontSize)
		if err != nil {
			return err
		}
		dc.SetFontFace(face)
	}
	dc.SetColor(background)
	dc.Clear()

	const margin = 60.0
	left, top := margin, margin
	right := float64(opts.Width) - margin/2
	bottom := float64(opts.Height) - margin
	x := func(k int) float64 {
		if maxK == minK {
			return (left + right) / 2
		}
		return left + (right-left)*float64(k-minK)/float64(maxK-minK)
	}
	y := func(v float64) float64 {
		return bottom - (bottom-top)*(v-lo)/(hi-lo)
	}

	dc.SetLineWidth(1)
	for i := 0; i <= 4; i++ {
		v := lo + (hi-lo)*float64(i)/4
		dc.SetColor(gridColor)
		dc.DrawLine(left, y(v), right, y(v))
		dc.Stroke()
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(strconv.FormatFloat(v, 'f', 3, 64), left-8, y(v), 1, 0.5)
	}
	for k := minK; k <= maxK; k++ {
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(strconv.Itoa(k), x(k), bottom+16, 0.5, 0.5)
	}
	dc.SetColor(axisColor)
	dc.SetLineWidth(1.5)
	dc.DrawLine(left, top, left, bottom)
	dc.DrawLine(left, bottom, right, bottom)
	dc.Stroke()
	dc.DrawStringAnchored(opts.Title, float64(opts.Width)/2, top/2, 0.5, 0.5)
	dc.DrawStringAnchored("k", (left+right)/2, bottom+36, 0.5, 0.5)

	dc.SetColor(lineColor)
	dc.SetLineWidth(2)
	for i := 1; i < len(ok); i++ {
		dc.DrawLine(x(ok[i-1].K), y(ok[i-1].Silhouette), x(ok[i].K), y(ok[i].Silhouette))
	}
	dc.Stroke()
	for _, s := range ok {
		dc.DrawCircle(x(s.K), y(s.Silhouette), 4)
	}
	dc.Fill()

	dc.SetColor(bestColor)
	dc.DrawCircle(x(best.K), y(best.Silhouette), 6)
	dc.Fill()
	dc.DrawStringAnchored(fmt.Sprintf("k=%d  %.3f", best.K, best.Silhouette), x(best.K), y(best.Silhouette)-14, 0.5, 0.5)

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// WriteSilhouetteChart renders the chart to path. The previous chart survives a
// failed render.
func WriteSilhouetteChart(path string, scores []types.ClusterScore, opts ChartOptions) error {
	return export.WriteAtomic(path, func(w io.Writer) error {
		return RenderSilhouette(w, scores, opts)
	})
}

func padRange(lo, hi float64) (float64, float64) {
	if hi-lo < 1e-9 {
		return lo - 0.05, hi + 0.05
	}
	pad := (hi - lo) * 0.1
	return lo - pad, hi + pad
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
