//go:build !unix && !windows

package control

func getControl(options Options) Control {
	return nil
}
