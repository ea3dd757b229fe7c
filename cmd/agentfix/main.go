package main

import (
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/cli"
)

func main() {
	cli.Execute()
}
