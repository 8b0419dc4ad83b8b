//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Demo runs the cmd/demo sample.
func (Run) Demo() error {
	fmt.Println("Run demo...")
	if _, err := executeCmd("go", withArgs("run", "./cmd/demo"), withStream()); err != nil {
		return err
	}
	return nil
}

// Test runs the full test suite.
func (Run) Test() error {
	fmt.Println("Run tests...")
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
