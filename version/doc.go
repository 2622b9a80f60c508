// Package version carries the brokerkit build version. The value ends up in
// the User-Agent header of every request the transport sends.
//
//	go build -ldflags "-X github.com/kbukum/brokerkit/version.Version=1.2.0"
package version
