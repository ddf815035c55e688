package fstab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blueboxgroup/ursula/internal/fileutils"
)

const sample = `# /etc/fstab
UUID=root / ext4 errors=remount-ro 0 1
UUID=aaaa /var/lib/ceph/osd/ceph-0 xfs defaults,noatime,largeio,inode64,swalloc 0 0
UUID=bbbb /var/lib/ceph/osd/ceph-1 xfs defaults,noatime,largeio,inode64,swalloc 0 0
`

func TestTableEdit(t *testing.T) {
	tab := Parse([]byte(sample))
	require.Len(t, tab.Grep("ceph"), 2)

	require.Equal(t, 2, tab.RemoveMatching("ceph"))
	require.False(t, tab.Contains("ceph"))

	e := Entry{Spec: "UUID=cccc", File: "/srv/node/sdb1", VfsType: "xfs", MntOps: "noatime,nodiratime,nobarrier,logbufs=8"}
	require.True(t, tab.AppendEntry(e))
	require.False(t, tab.AppendEntry(e))

	require.Equal(t, "# /etc/fstab\n"+
		"UUID=root / ext4 errors=remount-ro 0 1\n"+
		"UUID=cccc /srv/node/sdb1 xfs noatime,nodiratime,nobarrier,logbufs=8 0 0\n", string(tab.Bytes()))
}

func TestReadWrite(t *testing.T) {
	root := fileutils.Root(t.TempDir())

	tab, err := Read(root)
	require.NoError(t, err)
	require.Empty(t, tab.Lines())

	tab.Append("UUID=x /mnt xfs defaults 0 0")
	require.NoError(t, tab.Write(root))

	tab, err = Read(root)
	require.NoError(t, err)
	require.Equal(t, []string{"UUID=x /mnt xfs defaults 0 0"}, tab.Lines())
}

func TestParseEntry(t *testing.T) {
	e, ok := ParseEntry("UUID=root / ext4 errors=remount-ro 0 1")
	require.True(t, ok)
	require.Equal(t, Entry{Spec: "UUID=root", File: "/", VfsType: "ext4", MntOps: "errors=remount-ro", PassNo: 1}, e)

	_, ok = ParseEntry("# comment")
	require.False(t, ok)
}
