package rpc

import (
	"log"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
)

// ListenAndServe registers hs on a fresh net/rpc server (not the package's
// DefaultServer), under its type name, and accepts connections on addr, serving each with the JSON-RPC codec so the
// wire format is readable without a generated client.
func ListenAndServe(addr string, hs *HubService) error {
	server := rpc.NewServer()
	if err := server.Register(hs); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	log.Printf("rpc: listening on %s", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("rpc: accept error: %v", err)
			continue
		}
		go server.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}
