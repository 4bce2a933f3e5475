package fstree

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

// Encode returns input bytes that [Generate] decodes back into root.
// Useful for seeding a corpus with a known tree. Names longer than a 2-byte
// length prefix can express are an error.
func Encode(root *Directory) ([]byte, error) {
	var e encoder

	err := e.directory(root)
	if err != nil {
		return nil, err
	}

	return e.buf, nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) flag(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) name(name string) error {
	n, err := safecast.Conv[uint16](len(name))
	if err != nil {
		return fmt.Errorf("name %.16q...: %w", name, err)
	}

	e.buf = binary.LittleEndian.AppendUint16(e.buf, n)
	e.buf = append(e.buf, name...)

	return nil
}

func (e *encoder) directory(d *Directory) error {
	err := e.name(d.Name)
	if err != nil {
		return err
	}

	for _, child := range d.Children {
		e.flag(true)

		switch child := child.(type) {
		case *File:
			e.flag(true)

			err = e.name(child.Name)
			if err != nil {
				return err
			}

			for _, b := range child.Content {
				e.flag(true)
				e.buf = append(e.buf, b)
			}

			e.flag(false)

		case *Directory:
			e.flag(false)

			err = e.directory(child)
			if err != nil {
				return err
			}
		}
	}

	e.flag(false)

	return nil
}
