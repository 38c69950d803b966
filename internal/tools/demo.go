package tools

import "fmt"

// Add returns a + b.
func Add(a, b int) int {
	return a + b
}

// Greet returns a personalized greeting.
func Greet(name string) string {
	return fmt.Sprintf("Hello, %s!", name)
}
