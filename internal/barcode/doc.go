// Package barcode wraps the gozxing decoding library behind the two
// capabilities the frame scanner needs: a Binarizer that turns a luminance
// source into a bitonal image, and a Decoder that finds a symbol in it.
//
// It also provides a Backend for still images, used by the image, batch and
// PDF scanners.
//
// Example:
//
//	src, _ := barcode.NewYUVSource(buf, w, h, barcode.FullWindow(w, h))
//	bin, _ := barcode.NewBinarizer(barcode.BinarizerHybrid)
//	bmp, _ := bin.Binarize(src)
//	dec, _ := barcode.NewDecoder(barcode.Options{Formats: []barcode.Format{barcode.FormatQR}})
//	res, err := dec.Decode(bmp)
package barcode
