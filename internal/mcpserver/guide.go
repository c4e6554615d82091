package mcpserver

// GuideURI addresses the library guide resource.
const GuideURI = "tonearm://library-guide"

// LibraryGuide describes how files become library tracks.
const LibraryGuide = `# Tonearm Library Guide

## Supported formats

| Container | Extensions     | Notes                              |
|-----------|----------------|------------------------------------|
| MP3       | .mp3           | ID3v1, ID3v2.2-2.4 tags            |
| FLAC      | .flac          | Vorbis comments, embedded pictures |
| Ogg       | .ogg, .oga     | Vorbis comments                    |
| WAV       | .wav           | no tags; title comes from the name |

Files whose media type is not audio/* are skipped. Other audio containers
such as AAC/M4A are stored and their tags are read, but they cannot be
played: they are listed with "unsupported": true and the player steps over
them.

## Metadata rules

1. **Title** is the tag title, else the file name without its extension.
2. **Artist** falls back to the album artist. Missing artist and album
   read as "—".
3. **Duration** comes from the tag length, else from decoding the stream,
   formatted as m:ss. Undecodable files get "0:00".
4. **Cover** is the front cover picture when tagged as such, else the
   first embedded picture. Tracks without one use the default cover.
5. **Duplicates** are detected by file name and byte size. Re-importing the
   same file is a no-op.

## Rescan

rescan_library revisits every track still carrying a default field and
saves any improvement. It never overwrites real values.
`
