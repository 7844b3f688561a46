package progressive

import (
	"encoding/binary"
	"fmt"
	"sync"
)

const blockHeaderLen = 6 // 2-byte block type + 4-byte block length

type tileKey struct {
	X, Y uint16
}

// DirtyTile is one tile touched during the frame just completed by Process.
type DirtyTile struct {
	XIdx, YIdx uint16
	Pixels     *[TileBGRASize]byte
}

// Frame is returned by Process once a FRAME_END block has been consumed.
type Frame struct {
	FrameIdx   uint32
	DirtyTiles []DirtyTile
}

// Context is the per-surface progressive decoder state: the SYNC/CONTEXT/
// REGION/TILE_*/FRAME_END block dispatcher plus the tile grid it refines
// across passes. Tiles are looked up and inserted under mu so a bounded
// worker pool can decode several tiles of the same region concurrently.
type Context struct {
	mu   sync.Mutex
	tiles map[tileKey]*Tile

	extrapolate bool
	tileSize    uint8

	frameIdx           uint32
	updatedTileIndices []tileKey

	Pool *WorkerPool
}

// NewContext creates a Context with a default-sized tile worker pool.
func NewContext() *Context {
	return NewContextWithPool(DefaultWorkerPoolSize, DefaultWorkerQueueSize)
}

// NewContextWithPool creates a Context whose tile worker pool is sized by
// workers/queueSize (each falling back to its package default when <= 0),
// so a deployment can size the pool from its own configuration (spec §5's
// "default 4 workers, bounded queue 256" is a default, not a fixed value).
func NewContextWithPool(workers, queueSize int) *Context {
	return &Context{
		tiles: make(map[tileKey]*Tile),
		Pool:  NewWorkerPool(workers, queueSize),
	}
}

// Process consumes one or more complete progressive blocks from data,
// dispatching SYNC/FRAME_BEGIN/CONTEXT/REGION/TILE_*/FRAME_END in order. It
// returns a non-nil Frame exactly when a FRAME_END block has been consumed;
// tile pixels from blocks before FRAME_END must not be read by the caller,
// since the frame is still in flight.
func (c *Context) Process(data []byte) (*Frame, error) {
	offset := 0
	var frame *Frame

	for offset < len(data) {
		if offset+blockHeaderLen > len(data) {
			return frame, ErrBlockTooShort
		}
		blockType := binary.LittleEndian.Uint16(data[offset:])
		blockLen := int(binary.LittleEndian.Uint32(data[offset+2:]))
		if blockLen < blockHeaderLen || offset+blockLen > len(data) {
			return frame, fmt.Errorf("%w: block at offset %d", ErrBlockLength, offset)
		}
		body := data[offset+blockHeaderLen : offset+blockLen]

		switch blockType {
		case BlockSync:
			if err := c.handleSync(body); err != nil {
				return frame, err
			}
		case BlockFrameBegin:
			c.handleFrameBegin(body)
		case BlockContext:
			if err := c.handleContext(body); err != nil {
				return frame, err
			}
		case BlockRegion:
			if err := c.handleRegion(body); err != nil {
				return frame, err
			}
		case BlockFrameEnd:
			frame = c.handleFrameEnd()
		}

		offset += blockLen
	}

	return frame, nil
}

func (c *Context) handleSync(body []byte) error {
	if len(body) < 6 {
		return ErrBlockTooShort
	}
	magic := binary.LittleEndian.Uint32(body[0:])
	version := binary.LittleEndian.Uint16(body[4:])
	if magic != SyncMagic {
		return ErrBadSyncMagic
	}
	if version != SyncVersion {
		return ErrBadSyncVersion
	}

	c.mu.Lock()
	for _, t := range c.tiles {
		t.Reset()
	}
	c.mu.Unlock()
	return nil
}

func (c *Context) handleFrameBegin(body []byte) {
	if len(body) >= 4 {
		c.frameIdx = binary.LittleEndian.Uint32(body[0:])
	}
	c.updatedTileIndices = c.updatedTileIndices[:0]
}

func (c *Context) handleContext(body []byte) error {
	if len(body) < 4 {
		return ErrBlockTooShort
	}
	tileSize := body[1]
	if tileSize != TileSize {
		return ErrBadTileSize
	}
	flags := body[3]

	c.mu.Lock()
	c.tileSize = tileSize
	c.extrapolate = flags&ContextFlagExtrapolate != 0
	for _, t := range c.tiles {
		t.Reset()
	}
	c.mu.Unlock()
	return nil
}

// regionSubblock is one TILE_SIMPLE/TILE_FIRST/TILE_UPGRADE subblock body
// pulled out of a REGION's tile block stream, tagged with its block type.
type regionSubblock struct {
	blockType uint16
	body      []byte
}

func (c *Context) handleRegion(body []byte) error {
	region, err := ParseRegion(body)
	if err != nil {
		return err
	}

	byKey := make(map[tileKey][]regionSubblock)
	var order []tileKey

	offset := 0
	for offset < len(region.TileBlocks) {
		if offset+blockHeaderLen > len(region.TileBlocks) {
			break
		}
		blockType := binary.LittleEndian.Uint16(region.TileBlocks[offset:])
		blockLen := int(binary.LittleEndian.Uint32(region.TileBlocks[offset+2:]))
		if blockLen < blockHeaderLen || offset+blockLen > len(region.TileBlocks) {
			break
		}
		tileBody := region.TileBlocks[offset+blockHeaderLen : offset+blockLen]
		offset += blockLen

		if blockType != BlockTileSimple && blockType != BlockTileFirst && blockType != BlockTileUpgrade {
			continue
		}
		// TILE_SIMPLE/FIRST/UPGRADE all carry (xIdx, yIdx) at the same
		// header offset, so the grid key can be read before the block is
		// dispatched to its specific decoder.
		if len(tileBody) < 8 {
			continue
		}
		key := tileKey{
			X: binary.LittleEndian.Uint16(tileBody[4:6]),
			Y: binary.LittleEndian.Uint16(tileBody[6:8]),
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], regionSubblock{blockType, tileBody})
	}

	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	// Every subblock referencing the same tile key is submitted as a
	// single pool job that runs them in wire order. That keeps a
	// TILE_FIRST and a later TILE_UPGRADE for the same tile from ever
	// running concurrently on two different workers, where the upgrade
	// could race the insert and find nothing to refine: a tile is never
	// enqueued twice at once. Distinct tile keys still decode in parallel
	// across the pool's workers.
	for _, key := range order {
		blocks := byKey[key]
		wg.Add(1)
		c.Pool.Submit(func() {
			defer wg.Done()
			for _, sb := range blocks {
				var err error
				switch sb.blockType {
				case BlockTileSimple, BlockTileFirst:
					err = c.decodeNewTile(sb.blockType, sb.body, region.Quants, region.ProgQuants)
				case BlockTileUpgrade:
					err = c.decodeUpgrade(sb.body)
				}
				if err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
				}
			}
		})
	}

	wg.Wait()
	return firstErr
}

func (c *Context) decodeNewTile(blockType uint16, body []byte, quants, progQuants []Quant) error {
	var scratch Scratch
	var tile *Tile
	var err error
	switch blockType {
	case BlockTileSimple:
		tile, err = DecodeSimpleTile(body, quants, progQuants, &scratch, c.extrapolate)
	case BlockTileFirst:
		tile, err = DecodeFirstTile(body, quants, progQuants, &scratch, c.extrapolate)
	}
	if err != nil {
		return err
	}

	key := tileKey{tile.XIdx, tile.YIdx}
	c.mu.Lock()
	c.tiles[key] = tile
	c.updatedTileIndices = append(c.updatedTileIndices, key)
	c.mu.Unlock()
	return nil
}

func (c *Context) decodeUpgrade(body []byte) error {
	xIdx, yIdx, err := UpgradeTileTarget(body)
	if err != nil {
		return err
	}

	c.mu.Lock()
	tile, ok := c.tiles[tileKey{xIdx, yIdx}]
	c.mu.Unlock()
	if !ok || !tile.Valid {
		return nil
	}

	var scratch Scratch
	if err := DecodeUpgradeTile(tile, body, &scratch); err != nil {
		return err
	}

	c.mu.Lock()
	c.updatedTileIndices = append(c.updatedTileIndices, tileKey{xIdx, yIdx})
	c.mu.Unlock()
	return nil
}

func (c *Context) handleFrameEnd() *Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	dirty := make([]DirtyTile, 0, len(c.updatedTileIndices))
	for _, key := range c.updatedTileIndices {
		tile, ok := c.tiles[key]
		if !ok {
			continue
		}
		dirty = append(dirty, DirtyTile{XIdx: key.X, YIdx: key.Y, Pixels: &tile.Pixels})
		tile.Dirty = false
	}

	return &Frame{FrameIdx: c.frameIdx, DirtyTiles: dirty}
}
