package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"namechain.dev/registry/factory"
	"namechain.dev/registry/namehash"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "hash":
		return cmdHash(args[1:], out, errOut)
	case "id":
		return cmdID(args[1:], out, errOut)
	case "subreg-addr":
		return cmdSubregAddr(args[1:], out, errOut)
	case "dns-encode":
		return cmdDNSEncode(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: namechain <command> [flags]

commands:
  hash <name>                  print the namehash of a fully-qualified name
  id <label>                   print the canonical token id of a label
  subreg-addr <deployer> <salt> print the deterministic subregistry address
  dns-encode <name>            print the dns-encoded form of a name
`)
}

func cmdHash(args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "usage: namechain hash <name>")
		return 2
	}
	fmt.Fprintln(out, namehash.NameHash(args[0]).Hex())
	return 0
}

func cmdID(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("id", flag.ContinueOnError)
	version := fs.Uint("version", 0, "version sub-field to stamp into the id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: namechain id [-version N] <label>")
		return 2
	}
	id := namehash.CanonicalID(fs.Arg(0))
	if *version != 0 {
		id = id.WithVersion(uint32(*version))
	}
	fmt.Fprintln(out, id)
	return 0
}

func cmdSubregAddr(args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(errOut, "usage: namechain subreg-addr <deployer-address> <salt-string>")
		return 2
	}
	if !common.IsHexAddress(args[0]) {
		fmt.Fprintf(errOut, "not an address: %s\n", args[0])
		return 2
	}
	var salt [32]byte
	copy(salt[:], crypto.Keccak256([]byte(args[1])))
	fmt.Fprintln(out, factory.AddressOf(common.HexToAddress(args[0]), salt).Hex())
	return 0
}

func cmdDNSEncode(args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "usage: namechain dns-encode <name>")
		return 2
	}
	fmt.Fprintf(out, "0x%x\n", namehash.DNSEncode(args[0]))
	return 0
}
