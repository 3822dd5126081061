// Package discovery provides mDNS-based discovery of other wmbusdecode
// instances on the local network, so a decode session can find a peer
// already handling a given meter id instead of starting a redundant one.
//
// Peers advertise under the "_wmbusdecode._tcp" service type with a TXT
// record listing the meter ids they are decoding ("meters=id1,id2,...").
//
// # Discovery process
//
//  1. Broadcast mDNS queries on the local network.
//  2. Listen for "_wmbusdecode._tcp" service advertisements.
//  3. Parse each entry's hostname and TXT records into a Peer.
//  4. Return the peer list after the scan timeout, or the first peer
//     advertising a requested meter id.
//
// # Usage
//
// Scanning for peers:
//
//	peers, err := discovery.ScanForPeers(10 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range peers {
//	    fmt.Println(p.String())
//	}
//
// Advertising this process as a peer (done by 'wmbusdecode serve'):
//
//	adv, err := discovery.Advertise("kitchen", 7653, []string{"37373731"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adv.Shutdown()
//
// # Network requirements
//
// Requires multicast support on the network interface and that peers sit
// on the same local network segment with mDNS (UDP port 5353) unblocked.
//
// # Thread safety
//
// Safe for concurrent use; multiple scans may run simultaneously.
package discovery
