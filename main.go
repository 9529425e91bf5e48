package main

import (
	"github.com/tn-tools/leasepay/cmd/leasepay"
)

func main() {
	leasepay.Execute()
}
