//go:build !amd64 && !arm64

package cpu

func detectFeaturesImpl() Features {
	return Features{}
}
