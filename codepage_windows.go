//go:build windows

package main

import "golang.org/x/sys/windows"

const codePageUTF8 = 65001

// setConsoleUTF8 switches an attached console to UTF-8 so accelerator names
// and log output render correctly. Without a console both calls fail, which
// is fine.
func setConsoleUTF8() {
	_ = windows.SetConsoleOutputCP(codePageUTF8)
	_ = windows.SetConsoleCP(codePageUTF8)
}
