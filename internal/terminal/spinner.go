// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package terminal

import (
	"fmt"
	"os"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

// SpinnerFrames are the animation frames used by StartSpinner.
var SpinnerFrames = []string{"-", "\\", "|", "/"}

// StartSpinner draws an animated line with text until the returned function
// is called. The line is removed when done. When stdout is not a terminal
// nothing is drawn.
func StartSpinner(text string) (stop func()) {
	if !IsInteractive(os.Stdout) {
		return func() {}
	}
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		return func() {}
	}
	cursor.Hide()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		for i := 0; ; i++ {
			area.Update(fmt.Sprintf("%s %s", SpinnerFrames[i%len(SpinnerFrames)], text))
			select {
			case <-t.C:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			_ = area.Stop()
			cursor.Show()
		})
	}
}
