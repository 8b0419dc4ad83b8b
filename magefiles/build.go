//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Demo builds the cmd/demo binary.
func (Build) Demo() error {
	fmt.Println("Build demo...")
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/demo", "./cmd/demo"), withStream()); err != nil {
		return err
	}
	return nil
}
