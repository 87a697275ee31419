package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/grpc"

	"namechain.dev/registry/bridge"
	"namechain.dev/registry/bridge/bridgeregistry"
	"namechain.dev/registry/bridge/grpcbridge"
	"namechain.dev/registry/bridgesig"
	"namechain.dev/registry/datastore"
	"namechain.dev/registry/factory"
	"namechain.dev/registry/registry"
	"namechain.dev/registry/roles"
	"namechain.dev/registry/types"
)

func main() {
	fs := flag.NewFlagSet("namechain-bridged", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7878", "listen address")
	chain := fs.String("chain", "l2", "chain this daemon serves (l1 or l2)")
	transport := fs.String("transport", "grpc", "outbound bridge transport backend")
	peerKey := fs.String("peer-key", "", "pinned key string of the peer controller (empty disables the pin)")
	registryAddr := fs.String("registry", "0x0000000000000000000000000000000000000e47", "registry address")
	controllerAddr := fs.String("controller", "0x00000000000000000000000000000000000b41d6", "controller address")
	adminAddr := fs.String("admin", "", "root admin address (defaults to the controller)")
	listTransports := fs.Bool("list-transports", false, "List supported transports and exit")

	bridgeregistry.RegisterFlags(fs)

	_ = fs.Parse(os.Args[1:])
	if *listTransports {
		for _, b := range bridgeregistry.List() {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	chainID := types.ChainID(*chain)
	if !chainID.Valid() {
		fmt.Fprintf(os.Stderr, "invalid chain %q\n", *chain)
		os.Exit(2)
	}

	admin := common.HexToAddress(*adminAddr)
	ctrlAddr := common.HexToAddress(*controllerAddr)
	if admin == (common.Address{}) {
		admin = ctrlAddr
	}

	env := registry.NewEnv(chainID, datastore.NewMemStore())
	reg := registry.New(env, common.HexToAddress(*registryAddr), admin)
	if err := reg.Roles().Grant(admin, roles.RootResource, ctrlAddr, bridge.ControllerRoles()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	signer, err := bridgesig.NewEd25519Signer(priv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctrl := bridge.NewController(bridge.Config{
		Chain:    chainID,
		Env:      env,
		Registry: reg,
		Address:  ctrlAddr,
		Signer:   signer,
		PeerKey:  *peerKey,
		Factory:  factory.New(env),
	})

	out, closeFn, err := bridgeregistry.Open(*transport)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}
	ctrl.SetTransport(out)

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcbridge.RegisterBridgeServer(s, &grpcbridge.Server{Controller: ctrl})

	fmt.Fprintf(os.Stderr, "namechain-bridged listening on %s (chain=%s transport=%s key=%s)\n",
		lis.Addr().String(), chainID, *transport, signer.Key())
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
