package forwarder

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/jd3nn1s/dashboard/vehicle"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var maxPacketSize = binary.Size(Header{}) + binary.Size(StatePacket{})

var sendInterval = 100 * time.Millisecond

type UDPConfig struct {
	Enabled bool   `toml:"enabled"`
	Server  string `toml:"server"`
	Port    int    `toml:"port"`
}

// UDPForwarder sends the latest state to a UDP listener, at most once per
// send interval. Intermediate changes are coalesced.
type UDPForwarder struct {
	Config *UDPConfig

	conn    net.Conn
	fwdChan chan StatePacket
}

func NewUDPForwarder(config UDPConfig) (*UDPForwarder, error) {
	udp := &UDPForwarder{
		Config:  &config,
		fwdChan: make(chan StatePacket, 1),
	}
	if err := udp.connect(); err != nil {
		return nil, err
	}
	return udp, nil
}

func (udp *UDPForwarder) Close() error {
	return udp.conn.Close()
}

func (udp *UDPForwarder) Forward(change vehicle.Change) error {
	p := newStatePacket(change)
	select {
	case udp.fwdChan <- p:
	default:
		// replace the pending packet with the newer state
		select {
		case <-udp.fwdChan:
		default:
		}
		select {
		case udp.fwdChan <- p:
		default:
		}
	}
	return nil
}

func (udp *UDPForwarder) Start(ctx context.Context) error {
	limiter := time.NewTicker(sendInterval)
	defer limiter.Stop()
	for {
		select {
		case <-limiter.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case p := <-udp.fwdChan:
			if err := udp.forward(p); err != nil {
				log.WithError(err).Error("unable to forward state to server")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (udp *UDPForwarder) forward(p StatePacket) error {
	buf := bytes.NewBuffer(make([]byte, 0, maxPacketSize))
	hdr := Header{
		Type: TypeState,
	}
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "unable to write udp packet header")
	}
	if err := binary.Write(buf, binary.LittleEndian, &p); err != nil {
		return errors.Wrap(err, "unable to write state udp packet")
	}
	_, err := udp.conn.Write(buf.Bytes())
	return err
}

func (udp *UDPForwarder) connect() error {
	writeBufSize := maxPacketSize * 2

	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d",
		udp.Config.Server,
		udp.Config.Port))
	if err != nil {
		return errors.Wrap(err, "unable to dial udp server")
	}
	udpConn := conn.(*net.UDPConn)
	if err = udpConn.SetWriteBuffer(writeBufSize); err != nil {
		_ = conn.Close()
		return errors.Wrapf(err, "unable to set OS write buffer to %v", writeBufSize)
	}

	udp.conn = conn
	return nil
}
