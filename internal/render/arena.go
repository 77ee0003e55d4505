// Package render draws duel snapshots as images for debugging and the
// end-of-session arena dump.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"tank-duel/internal/game"

	"github.com/fogleman/gg"
)

// ErrNoSnapshot is returned when there is nothing to draw yet
var ErrNoSnapshot = errors.New("no snapshot published")

var (
	colorBackground = color.RGBA{12, 12, 28, 255}
	colorGrid       = color.RGBA{30, 30, 45, 255}
	colorWall       = color.RGBA{110, 110, 130, 255}
	colorShadow     = color.RGBA{0, 0, 0, 128}
	colorShield     = color.RGBA{255, 255, 255, 77}
	colorText       = color.RGBA{230, 230, 240, 255}
	colorHPBack     = color.RGBA{51, 51, 51, 255}

	// Slot colours: 1 = blue, 2 = red
	slotColors = map[int]color.RGBA{
		game.Slot1: {66, 135, 245, 255},
		game.Slot2: {245, 66, 87, 255},
	}
)

// Renderer draws snapshots at the arena's native resolution
type Renderer struct {
	TankRadius   float64
	BulletRadius float64
	MaxHealth    int
	GridSpacing  float64
}

// NewRenderer creates a renderer for the given body sizes
func NewRenderer(tankRadius, bulletRadius float64) *Renderer {
	return &Renderer{
		TankRadius:   tankRadius,
		BulletRadius: bulletRadius,
		MaxHealth:    100,
		GridSpacing:  50,
	}
}

// Render draws one snapshot
func (r *Renderer) Render(snap *game.Snapshot) (image.Image, error) {
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	w, h := int(snap.Arena.X), int(snap.Arena.Y)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid arena size %dx%d", w, h)
	}

	dc := gg.NewContext(w, h)
	r.drawBackground(dc, snap.Arena)
	r.drawWalls(dc, snap.Walls)
	for _, p := range snap.Projectiles {
		r.drawProjectile(dc, p)
	}
	for _, t := range []game.TankState{snap.Local, snap.Remote} {
		if t.Slot == snap.Remote.Slot && !snap.OpponentOnline {
			continue
		}
		r.drawTank(dc, t)
	}
	r.drawScoreboard(dc, snap)

	return dc.Image(), nil
}

// WritePNG renders snap and encodes it to w
func (r *Renderer) WritePNG(w io.Writer, snap *game.Snapshot) error {
	img, err := r.Render(snap)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG renders snap to a file
func (r *Renderer) SavePNG(path string, snap *game.Snapshot) error {
	img, err := r.Render(snap)
	if err != nil {
		return err
	}
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func (r *Renderer) drawBackground(dc *gg.Context, arena game.Vector) {
	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, arena.X, arena.Y)
	dc.Fill()

	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	for x := r.GridSpacing; x < arena.X; x += r.GridSpacing {
		dc.DrawLine(x, 0, x, arena.Y)
		dc.Stroke()
	}
	for y := r.GridSpacing; y < arena.Y; y += r.GridSpacing {
		dc.DrawLine(0, y, arena.X, y)
		dc.Stroke()
	}
}

func (r *Renderer) drawWalls(dc *gg.Context, walls []game.Wall) {
	dc.SetColor(colorWall)
	for _, w := range walls {
		dc.DrawRectangle(w.X, w.Y, w.W, w.H)
		dc.Fill()
	}
}

func (r *Renderer) drawProjectile(dc *gg.Context, p game.ProjectileSnapshot) {
	dc.SetColor(slotColor(p.Owner))
	dc.DrawCircle(p.X, p.Y, r.BulletRadius)
	dc.Fill()
}

func (r *Renderer) drawTank(dc *gg.Context, t game.TankState) {
	radius := r.TankRadius
	body := slotColor(t.Slot)

	if !t.Alive {
		// Wreck marker
		dc.SetColor(body)
		dc.SetLineWidth(3)
		dc.DrawLine(t.X-radius, t.Y-radius, t.X+radius, t.Y+radius)
		dc.DrawLine(t.X-radius, t.Y+radius, t.X+radius, t.Y-radius)
		dc.Stroke()
		return
	}

	// Shadow
	dc.SetColor(colorShadow)
	dc.DrawCircle(t.X, t.Y+3, radius)
	dc.Fill()

	// Spawn protection glow
	if t.Invincible {
		dc.SetColor(colorShield)
		dc.DrawCircle(t.X, t.Y, radius+6)
		dc.Fill()
	}

	dc.SetColor(body)
	dc.DrawCircle(t.X, t.Y, radius)
	dc.Fill()

	// Barrel
	dc.SetColor(color.White)
	dc.SetLineWidth(3)
	dc.DrawLine(t.X, t.Y, t.X+math.Cos(t.Heading)*radius*1.6, t.Y+math.Sin(t.Heading)*radius*1.6)
	dc.Stroke()

	// Health bar
	barWidth := radius * 3
	barHeight := 4.0
	top := t.Y - radius - 10
	hpPercent := 0.0
	if r.MaxHealth > 0 {
		hpPercent = math.Max(0, float64(t.Health)/float64(r.MaxHealth))
	}

	dc.SetColor(colorHPBack)
	dc.DrawRectangle(t.X-barWidth/2, top, barWidth, barHeight)
	dc.Fill()

	if hpPercent > 0.5 {
		dc.SetColor(color.RGBA{83, 255, 69, 255})
	} else if hpPercent > 0.25 {
		dc.SetColor(color.RGBA{255, 149, 0, 255})
	} else {
		dc.SetColor(color.RGBA{255, 62, 62, 255})
	}
	dc.DrawRectangle(t.X-barWidth/2, top, barWidth*math.Min(hpPercent, 1), barHeight)
	dc.Fill()
}

// drawScoreboard uses gg's built-in face so no font files are needed
func (r *Renderer) drawScoreboard(dc *gg.Context, snap *game.Snapshot) {
	dc.SetColor(colorText)
	status := "waiting for opponent"
	if snap.OpponentOnline {
		status = fmt.Sprintf("P%d score %d deaths %d   |   P%d score %d deaths %d",
			snap.Local.Slot, snap.Local.Score, snap.Local.Deaths,
			snap.Remote.Slot, snap.Remote.Score, snap.Remote.Deaths)
	}
	dc.DrawStringAnchored(status, snap.Arena.X/2, 16, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("tick %d", snap.TickNumber), 8, snap.Arena.Y-12, 0, 0.5)
}

func slotColor(slot int) color.RGBA {
	if c, ok := slotColors[slot]; ok {
		return c
	}
	return color.RGBA{255, 255, 255, 255}
}
