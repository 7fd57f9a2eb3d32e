//go:build !linux

package affinity

func pinPlatform(int) error {
	return ErrUnsupported
}
