/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "storystream/cmd"

func main() {
	cmd.Execute()
}
