package util

import "fmt"

func ExampleFormatFloat() {
	fmt.Println(FormatFloat(1e7), FormatFloat(-12345.6), FormatFloat(RoundTo(0.12345, 3)))
	// Output: 10000000 -12345.6 0.123
}

func ExampleLimiter_Clamp() {
	l := Limiter{Min: -110, Max: 110}
	fmt.Println(l.Clamp(1000), l.Clamp(-3))
	// Output: 110 -3
}
