package pipeline

import "log"

func widthMustBePositive(width int) {
	if width <= 0 {
		log.Panic("stage width must be positive")
	}
}
