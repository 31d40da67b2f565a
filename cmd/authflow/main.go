// authflow is a terminal driver for the BioPay sign-in flow against an Authentication Service.
package main

import "github.com/Krishna101010101010/Bio-pay/cmd/authflow/cmd"

func main() {
	cmd.Execute()
}
