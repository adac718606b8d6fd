// Package main is the entry point for schemata.
package main

func main() {
	Execute()
}
