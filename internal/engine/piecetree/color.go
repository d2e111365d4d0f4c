package piecetree

// color is a red-black tree color extended with Matt Might's deletion
// colors: double black and negative black exist only transiently while a
// removal bubbles up the tree.
type color uint8

const (
	red color = iota
	black
	doubleBlack
	negativeBlack
)

func (c *color) blacken() {
	switch *c {
	case red:
		*c = black
	case black:
		*c = doubleBlack
	case negativeBlack:
		*c = red
	}
}

func (c *color) redden() {
	switch *c {
	case red:
		*c = negativeBlack
	case black:
		*c = red
	case doubleBlack:
		*c = black
	}
}
