package glyph

import (
	"fmt"

	"github.com/paulmach/protoscan"
)

// Glyph is one rasterized signed distance field glyph.
type Glyph struct {
	ID      rune
	Bitmap  []byte
	Width   uint32
	Height  uint32
	Left    int32
	Top     int32
	Advance uint32
}

// Decoder parses a glyph range response.
type Decoder interface {
	Decode(data []byte) ([]Glyph, error)
}

// PBFDecoder decodes the glyph protobuf format:
//
//	message glyphs { repeated fontstack stacks = 1; }
//	message fontstack { string name = 1; string range = 2; repeated glyph glyphs = 3; }
//	message glyph { uint32 id = 1; bytes bitmap = 2; uint32 width = 3; uint32 height = 4;
//	                sint32 left = 5; sint32 top = 6; uint32 advance = 7; }
type PBFDecoder struct{}

// Decode implements Decoder.
func (PBFDecoder) Decode(data []byte) ([]Glyph, error) {
	var glyphs []Glyph
	msg := protoscan.New(data)
	for msg.Next() {
		if msg.FieldNumber() != 1 {
			msg.Skip()
			continue
		}
		stack, err := msg.Message(nil)
		if err != nil {
			return nil, fmt.Errorf("glyphs: %w", err)
		}
		if glyphs, err = decodeStack(stack, glyphs); err != nil {
			return nil, err
		}
	}
	if err := msg.Err(); err != nil {
		return nil, fmt.Errorf("glyphs: %w", err)
	}
	return glyphs, nil
}

func decodeStack(msg *protoscan.Message, glyphs []Glyph) ([]Glyph, error) {
	var gm *protoscan.Message
	for msg.Next() {
		if msg.FieldNumber() != 3 {
			msg.Skip()
			continue
		}
		var err error
		gm, err = msg.Message(gm)
		if err != nil {
			return nil, fmt.Errorf("fontstack: %w", err)
		}
		g, err := decodeGlyph(gm)
		if err != nil {
			return nil, err
		}
		glyphs = append(glyphs, g)
	}
	if err := msg.Err(); err != nil {
		return nil, fmt.Errorf("fontstack: %w", err)
	}
	return glyphs, nil
}

func decodeGlyph(msg *protoscan.Message) (Glyph, error) {
	var (
		g   Glyph
		err error
	)
	for msg.Next() {
		switch msg.FieldNumber() {
		case 1:
			var id uint32
			id, err = msg.Uint32()
			g.ID = rune(id)
		case 2:
			g.Bitmap, err = msg.Bytes()
		case 3:
			g.Width, err = msg.Uint32()
		case 4:
			g.Height, err = msg.Uint32()
		case 5:
			g.Left, err = msg.Sint32()
		case 6:
			g.Top, err = msg.Sint32()
		case 7:
			g.Advance, err = msg.Uint32()
		default:
			msg.Skip()
		}
		if err != nil {
			return Glyph{}, fmt.Errorf("glyph: %w", err)
		}
	}
	if err := msg.Err(); err != nil {
		return Glyph{}, fmt.Errorf("glyph: %w", err)
	}
	return g, nil
}
