package main

// main is the entry point of the smsdash launcher. Everything happens in
// the Cobra commands defined in root.go and check.go.
func main() {
	Execute()
}
