package filters

import (
	"github.com/pkg/errors"
)

// unpredict reverses a TIFF (2) or PNG (10-15) predictor.
func unpredict(data []byte, predictor int, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)
	if bpc != 8 {
		return nil, errors.Errorf("only 8 bits per component are supported, got %d", bpc)
	}
	if columns < 1 || colors < 1 {
		return nil, errors.Errorf("invalid row geometry %dx%d", columns, colors)
	}

	switch {
	case predictor == 2:
		return unpredictTIFF(data, columns*colors, colors)
	case predictor >= 10 && predictor <= 15:
		return unpredictPNG(data, columns*colors, colors)
	}
	return nil, errors.Errorf("unsupported predictor %d", predictor)
}

// unpredictTIFF adds each sample to the sample one pixel to its left.
func unpredictTIFF(data []byte, rowLen, bpp int) ([]byte, error) {
	if len(data)%rowLen != 0 {
		return nil, errors.Errorf("data size %d is not a multiple of row size %d", len(data), rowLen)
	}
	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start < len(out); start += rowLen {
		row := out[start : start+rowLen]
		for i := bpp; i < rowLen; i++ {
			row[i] += row[i-bpp]
		}
	}
	return out, nil
}

// unpredictPNG decodes rows that each start with a PNG filter type byte.
func unpredictPNG(data []byte, rowLen, bpp int) ([]byte, error) {
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, errors.Errorf("data size %d is not a multiple of row size %d", len(data), stride)
	}
	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)

	for r := 0; r < rows; r++ {
		src := data[r*stride+1 : (r+1)*stride]
		cur := out[r*rowLen : (r+1)*rowLen]
		if err := pngRow(data[r*stride], src, cur, prev, bpp); err != nil {
			return nil, errors.Wrapf(err, "row %d", r)
		}
		prev = cur
	}
	return out, nil
}

func pngRow(kind byte, src, cur, prev []byte, bpp int) error {
	for i := range src {
		var left, upLeft byte
		if i >= bpp {
			left = cur[i-bpp]
			upLeft = prev[i-bpp]
		}
		up := prev[i]

		var p byte
		switch kind {
		case 0:
		case 1:
			p = left
		case 2:
			p = up
		case 3:
			p = byte((int(left) + int(up)) / 2)
		case 4:
			p = paeth(left, up, upLeft)
		default:
			return errors.Errorf("unknown PNG filter type %d", kind)
		}
		cur[i] = src[i] + p
	}
	return nil
}

// paeth picks whichever of left, above and upper-left is nearest to
// left+above-upperLeft.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
