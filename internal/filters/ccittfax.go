package filters

import (
	"bytes"
	"io"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes CCITT Group 3 or 4 fax data into packed rows of
// bits. K below zero selects Group 4; Rows of 0 lets the decoder find the
// height. BlackIs1 maps to the decoder's Invert option.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", 0)
	if rows == 0 {
		rows = ccitt.AutoDetectHeight
	}

	sf := ccitt.Group3
	if getIntParam(params, "K", 0) < 0 {
		sf = ccitt.Group4
	}
	opts := &ccitt.Options{Invert: getBoolParam(params, "BlackIs1", false)}

	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows, opts)
	return io.ReadAll(r)
}
